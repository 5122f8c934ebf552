package servlets

import (
	"html/template"
	"io"

	"gitlab.com/deepdhamala/webtainer/internal/request"
	"gitlab.com/deepdhamala/webtainer/internal/response"
	"gitlab.com/deepdhamala/webtainer/internal/servlet"
)

const htmlContentType = "text/html; charset=UTF-8"

const pageStyle = `
    body { font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; margin: 0; background: #f4f7f9; color: #333; }
    header { background-color: #003366; color: white; padding: 20px 40px; text-align: center; }
    h1 { margin: 0; font-size: 3em; }
    main { max-width: 900px; margin: 30px auto; padding: 0 20px; }
    h2 { color: #003366; border-bottom: 2px solid #0055aa; padding-bottom: 5px; }
    p { line-height: 1.6; font-size: 1.1em; }
    pre { background-color: #eaeaea; padding: 15px; border-radius: 6px; overflow-x: auto; }
    .highlight { font-weight: bold; color: #0055aa; }
`

const welcomePage = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Welcome to Webtainer</title>
  <style>` + pageStyle + `</style>
</head>
<body>
<header>
  <h1>Webtainer</h1>
</header>
<main>
<section id="overview">
  <h2>Welcome to Webtainer</h2>
  <p>Webtainer is a small HTTP/1.1 server that dispatches every request to the servlet registered for its path.</p>
</section>
<section id="formtest">
  <h2>Test POST Request</h2>
  <form method="POST">
    <label for="username">Username:</label><br>
    <input type="text" id="username" name="username" required><br><br>
    <label for="age">Age:</label><br>
    <input type="number" id="age" name="age" required><br><br>
    <button type="submit">Submit</button>
  </form>
</section>
<section id="usage">
  <h2>Getting Started</h2>
  <p>Servlets are mapped to exact paths on the command line:</p>
  <pre><code>webtainer -listen-http :8080 -servlet /=welcome -servlet /healthz=status</code></pre>
</section>
</main>
</body>
</html>
`

var resultPage = template.Must(template.New("result").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>Form Result - Webtainer</title>
  <style>` + pageStyle + `</style>
</head>
<body>
<header>
  <h1>Form Result</h1>
</header>
<main>
  <h2>Submission Successful</h2>
  <p>Hi <span class="highlight">{{.Username}}</span>, nice to meet you!</p>
  <p>You are <span class="highlight">{{.Age}}</span> years old.</p>
  <p><a href="/">Back to Home</a></p>
</main>
</body>
</html>
`))

// Welcome serves a landing page with a test form on GET and echoes the
// submitted form on POST
type Welcome struct {
	servlet.Base
}

// NewWelcome creates the welcome servlet
func NewWelcome() servlet.Servlet {
	return servlet.NewHTTPServlet(&Welcome{})
}

// DoGet writes the landing page
func (w *Welcome) DoGet(_ *request.Request, resp *response.Response) error {
	resp.SetHeader("Content-Type", htmlContentType)

	_, err := io.WriteString(resp.Writer(), welcomePage)
	return err
}

// DoPost echoes the username and age parameters, HTML escaped
func (w *Welcome) DoPost(req *request.Request, resp *response.Response) error {
	resp.SetHeader("Content-Type", htmlContentType)

	return resultPage.Execute(resp.Writer(), struct {
		Username string
		Age      string
	}{
		Username: req.Param("username"),
		Age:      req.Param("age"),
	})
}
