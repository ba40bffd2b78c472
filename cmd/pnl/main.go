// Command pnl builds P&L reports from a bot's offer log and maintains the
// stores the server reads from.
//
//	pnl report [-config file] [-polldata file] [-pricelist file] [-limit n]
//	pnl import -config file -polldata file [-pricelist file]
//	pnl price  [-config file] -sku sku [-buy-keys n] [-buy-metal n] [-sell-keys n] [-sell-metal n]
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: pnl <report|import|price> [flags]")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "report":
		err = runReport(ctx, os.Args[2:], os.Stdout, logger)
	case "import":
		err = runImport(ctx, os.Args[2:], logger)
	case "price":
		err = runPrice(ctx, os.Args[2:], logger)
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		stop()
		logger.WithError(err).Fatal(os.Args[1] + " failed")
	}
}
