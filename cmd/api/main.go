// @title           PdfRAG API
// @version         1.0
// @description     Question answering, semantic search and chat over uploaded PDF documents
// @termsOfService  http://swagger.io/terms/

// @license.name    Apache 2.0
// @license.url     http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:3000
// @BasePath  /
// @schemes   http https

// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/akolanti/PdfRAG/internal/config"
	"github.com/akolanti/PdfRAG/pkg/logger_i"
)

var (
	configPath string
	logger     = logger_i.NewLogger("main")
)

var rootCmd = &cobra.Command{
	Use:           "pdfrag",
	Short:         "Retrieval augmented question answering over PDF documents",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "config file (yaml or toml); missing is fine")
	rootCmd.AddCommand(serveCmd(), ingestCmd(), removeCmd(), statsCmd(), searchCmd())
}

func main() {
	// a missing .env is normal outside development
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(local bool) (config.Config, error) {
	var cfg config.Config
	var err error
	if local {
		cfg, err = config.LoadLocal(configPath)
	} else {
		cfg, err = config.Load(configPath)
	}
	if err != nil {
		return config.Config{}, err
	}
	logger_i.Init(cfg.Log)
	return cfg, nil
}
