// pipeline-server serves the partner opportunity pipeline API and kanban board.
//
// Usage (from the repository root):
//
//	PIPELINE_CONFIG=config/config.yaml go run ./cmd/pipeline-server
package main

import "partnerpipeline/internal/app"

func main() {
	app.Run()
}
