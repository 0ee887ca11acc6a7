package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"medorbis-gateway/cmd/download"
	"medorbis-gateway/cmd/embeddings"
	"medorbis-gateway/cmd/index"
	"medorbis-gateway/cmd/query"
	"medorbis-gateway/cmd/serve"
)

func main() {
	app := &cli.App{
		Name:  "medorbis",
		Usage: "University Q&A chat gateway",
		Commands: []*cli.Command{
			{
				Name:    "serve",
				Aliases: []string{"s"},
				Usage:   "Run the chat gateway",
				Flags:   serve.Flags,
				Action:  serve.Serve,
			},
			{
				Name:   "standalone",
				Usage:  "Run the minimal chat server with the same API",
				Flags:  serve.Flags,
				Action: serve.Standalone,
			},
			{
				Name:    "query",
				Aliases: []string{"q"},
				Usage:   "Answer one v1 chat request and print the response",
				Flags:   query.Flags,
				Action:  query.Query,
			},
			{
				Name:    "download",
				Aliases: []string{"d"},
				Usage:   "Add course announcements from a feed to the local document manifest",
				Flags:   download.Flags,
				Action:  download.Download,
			},
			{
				Name:    "embed",
				Aliases: []string{"e"},
				Usage:   "Generate chunk embeddings for downloaded documents",
				Flags:   embeddings.Flags,
				Action:  embeddings.Embed,
			},
			{
				Name:    "index",
				Aliases: []string{"i"},
				Usage:   "Load cached embeddings into the vector backend",
				Flags:   index.Flags,
				Action:  index.Index,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
