// The api-server command runs the RasPay HTTP API.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/raspay/raspay-server/pkg/app"
	"github.com/raspay/raspay-server/pkg/app/api"
	"github.com/raspay/raspay-server/pkg/config"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	var runner app.Runner = api.NewServer(cfg)
	if err := runner.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "server exited with error: %v\n", err)
		os.Exit(1)
	}
}
