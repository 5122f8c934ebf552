package servlets

import (
	"io"

	"gitlab.com/deepdhamala/webtainer/internal/request"
	"gitlab.com/deepdhamala/webtainer/internal/response"
	"gitlab.com/deepdhamala/webtainer/internal/servlet"
)

// Status answers health checks with a plain "success"
type Status struct {
	servlet.Base
}

// NewStatus creates the status servlet
func NewStatus() servlet.Servlet {
	return servlet.NewHTTPServlet(&Status{})
}

// DoGet writes "success"
func (s *Status) DoGet(_ *request.Request, resp *response.Response) error {
	resp.SetHeader("Content-Type", "text/plain; charset=UTF-8")

	_, err := io.WriteString(resp.Writer(), "success")
	return err
}
