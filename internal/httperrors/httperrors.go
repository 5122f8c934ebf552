package httperrors

import (
	"bufio"
	"fmt"
	"html"
	"io"

	"gitlab.com/deepdhamala/webtainer/internal/response"
)

type content struct {
	status    int
	subHeader string
}

var (
	content400 = content{
		response.StatusBadRequest,
		`<p>The server could not understand the request because of malformed syntax.</p>`,
	}
	content404 = content{
		response.StatusNotFound,
		`<p>No servlet is registered for the requested path.</p>`,
	}
	content405 = content{
		response.StatusMethodNotAllowed,
		`<p>The servlet registered for this path does not handle the request method.</p>`,
	}
	content408 = content{
		response.StatusRequestTimeout,
		`<p>The server timed out waiting for the request.</p>`,
	}
	content414 = content{
		response.StatusRequestURITooLong,
		`<p>The requested URI is longer than the server is willing to interpret.</p>`,
	}
	content429 = content{
		response.StatusTooManyRequests,
		`<p>The resource that you are attempting to access is being rate limited.</p>`,
	}
	content431 = content{
		response.StatusHeaderTooLarge,
		`<p>The request headers are larger than the server is willing to process.</p>`,
	}
	content500 = content{
		response.StatusInternalServerError,
		`<p>The server encountered an error while processing your request.</p>`,
	}
	content501 = content{
		response.StatusNotImplemented,
		`<p>The request method is not supported by this server.</p>`,
	}
	content503 = content{
		response.StatusServiceUnavailable,
		`<p>The server is shutting down and can not serve the request.</p>`,
	}
)

const predefinedErrorPage = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>HTTP Status %[1]d – %[2]s</title>
  <style type="text/css">
    body {font-family: Tahoma, Arial, sans-serif; background-color: #fff; color: #000;}
    h1 {font-size: 22px; font-weight: bold; margin: 20px 0 10px;}
    p {margin: 5px 0;}
    hr {border: none; border-top: 1px solid #aaa; margin: 20px 0;}
    .footer {font-size: 12px; color: #555;}
  </style>
</head>
<body>
  <h1>HTTP Status %[1]d – %[2]s</h1>
  %[3]s
  <hr/>
  <div class="footer">Webtainer</div>
</body>
</html>
`

func generateErrorHTML(c content) string {
	return fmt.Sprintf(predefinedErrorPage, c.status, html.EscapeString(response.StatusText(c.status)), c.subHeader)
}

// header is an extra response header written with an error page
type header struct {
	name, value string
}

func serveErrorPage(w io.Writer, c content, extra ...header) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "%s %d %s\r\n", response.Version, c.status, response.StatusText(c.status))
	fmt.Fprint(bw, "Content-Type: text/html; charset=UTF-8\r\n")
	fmt.Fprint(bw, "X-Content-Type-Options: nosniff\r\n")
	for _, h := range extra {
		fmt.Fprintf(bw, "%s: %s\r\n", h.name, h.value)
	}
	fmt.Fprint(bw, "Connection: close\r\n\r\n")
	fmt.Fprint(bw, generateErrorHTML(c))

	return bw.Flush()
}

// Serve400 writes a 400 error response / HTML page to w
func Serve400(w io.Writer) error {
	return serveErrorPage(w, content400)
}

// Serve404 writes a 404 error response / HTML page to w
func Serve404(w io.Writer) error {
	return serveErrorPage(w, content404)
}

// Serve405 writes a 405 error response / HTML page to w, listing the allowed
// methods. The Allow header is left out when allow is empty.
func Serve405(w io.Writer, allow string) error {
	if allow == "" {
		return serveErrorPage(w, content405)
	}

	return serveErrorPage(w, content405, header{"Allow", allow})
}

// Serve408 writes a 408 error response / HTML page to w
func Serve408(w io.Writer) error {
	return serveErrorPage(w, content408)
}

// Serve414 writes a 414 error response / HTML page to w
func Serve414(w io.Writer) error {
	return serveErrorPage(w, content414)
}

// Serve429 writes a 429 error response / HTML page to w
func Serve429(w io.Writer) error {
	return serveErrorPage(w, content429)
}

// Serve431 writes a 431 error response / HTML page to w
func Serve431(w io.Writer) error {
	return serveErrorPage(w, content431)
}

// Serve500 writes a 500 error response / HTML page to w
func Serve500(w io.Writer) error {
	return serveErrorPage(w, content500)
}

// Serve501 writes a 501 error response / HTML page to w
func Serve501(w io.Writer) error {
	return serveErrorPage(w, content501)
}

// Serve503 writes a 503 error response / HTML page to w
func Serve503(w io.Writer) error {
	return serveErrorPage(w, content503)
}
