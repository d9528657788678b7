/*
Package spidey is a small HTTP/1.0 server for static files, directory listings and CGI scripts.

Each connection carries exactly one request. The request path is resolved against a document
root (symlinks and ".." included) and anything that lands outside it is refused. What is found
there decides the response:

  - a directory is listed as an HTML index
  - an executable regular file is run as a CGI script and its output relayed
  - a readable regular file is streamed with a Content-Type from mime.types
  - anything else gets a 404 page

Quick Start

	spidey -p 8080 -r /srv/www -c forking

or, embedded:

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}
	application, err := app.New(cfg)
	if err != nil {
		log.Fatal(err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	application.Run(ctx)

Modes

In single mode the accept loop serves each connection before accepting the next. In forking
mode every connection runs on its own worker; -max-workers caps how many may run at once and a
connection that cannot get a worker is answered with 500.

Modules

  - app: Application lifecycle, logging and graceful shutdown
  - config: Flags, SPIDEY_* environment variables and JSON configuration
  - core: Accept loop and concurrency modes
  - core/http: Request model, parser and response wire format
  - core/sandbox: Document root confinement
  - core/mime: mime.types lookup
  - core/handler: Classification, response generators and the dispatcher
  - core/pools: Worker spawner and copy buffers
  - core/observability: Per-kind request metrics
  - core/accesslog, core/codec: Access log in JSON lines or delimited protobuf
*/
package spidey
