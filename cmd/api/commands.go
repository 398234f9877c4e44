package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/akolanti/PdfRAG/internal/rag/ingest"
	"github.com/akolanti/PdfRAG/internal/rag/retriever"
	"github.com/akolanti/PdfRAG/internal/rag/vectorDB"
)

func ingestCmd() *cobra.Command {
	var sourceID, title string
	cmd := &cobra.Command{
		Use:   "ingest <path>...",
		Short: "Extract, chunk, embed and store documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if sourceID != "" && len(args) > 1 {
				return fmt.Errorf("--source-id needs exactly one path")
			}
			cfg, err := loadConfig(true)
			if err != nil {
				return err
			}
			// hydrating keeps unchanged chunks from being embedded again
			app, err := buildCore(cmd.Context(), cfg, coreOptions{hydrate: true})
			if err != nil {
				return err
			}
			defer app.Close()

			failed := 0
			for _, path := range args {
				id := sourceID
				if id == "" {
					id = ingest.SourceIDFor(path)
				}
				res, err := app.rag.IngestFile(cmd.Context(), path, id, title)
				if err != nil {
					failed++
					fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
					continue
				}
				fmt.Printf("%s: %d chunks (%d embedded, %d reused, %d removed)\n",
					res.SourceID, res.Chunks, res.Embedded, res.Reused, res.Removed)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d documents failed", failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&sourceID, "source-id", "", "source id, defaults to the file name")
	cmd.Flags().StringVar(&title, "title", "", "display title")
	return cmd
}

func removeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <source_id>",
		Short: "Delete every chunk of a source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(true)
			if err != nil {
				return err
			}
			app, err := buildCore(cmd.Context(), cfg, coreOptions{hydrate: true})
			if err != nil {
				return err
			}
			defer app.Close()

			removed, err := app.rag.RemoveSource(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("removed %d chunks of %s\n", removed, args[0])
			return nil
		},
	}
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show index statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(true)
			if err != nil {
				return err
			}
			app, err := buildCore(cmd.Context(), cfg, coreOptions{hydrate: true})
			if err != nil {
				return err
			}
			defer app.Close()
			return printJSON(app.rag.Stats(cmd.Context()))
		},
	}
}

// searchCmd queries the storage backend directly instead of loading the whole
// collection. With the memory backend there is nothing stored, so it finds nothing.
func searchCmd() *cobra.Command {
	var k int
	var source string
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Semantic search without generating an answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(true)
			if err != nil {
				return err
			}
			app, err := buildCore(cmd.Context(), cfg, coreOptions{})
			if err != nil {
				return err
			}
			defer app.Close()

			var filter vectorDB.Filter
			if source != "" {
				filter.SourceID = &source
			}
			r := retriever.New(app.embedder, app.index.Remote(), cfg.Retrieval.MaxK)
			chunks, err := r.Retrieve(cmd.Context(), strings.Join(args, " "), k, filter, nil)
			if err != nil {
				return err
			}
			return printJSON(chunks)
		},
	}
	cmd.Flags().IntVarP(&k, "k", "k", 5, "number of chunks")
	cmd.Flags().StringVar(&source, "source-id", "", "restrict to one source")
	return cmd
}

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}
