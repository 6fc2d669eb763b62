// Command paydeskctl reviews pending payment requests of a running paydesk server.
//
// Usage:
//
//	paydeskctl pending
//	paydeskctl approve <request-id>
//	paydeskctl reject <request-id>
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/danilovkiri/dk-go-paydesk/internal/api/rest/v1/client"
	"github.com/danilovkiri/dk-go-paydesk/internal/config"
	"github.com/danilovkiri/dk-go-paydesk/internal/logger"
	"github.com/danilovkiri/dk-go-paydesk/internal/models/modeldto"
	"github.com/danilovkiri/dk-go-paydesk/internal/models/modelstorage"
	"github.com/danilovkiri/dk-go-paydesk/internal/service/reviewer/v1/reviewer"
	"github.com/rs/zerolog"
)

func main() {
	log := logger.InitLog()
	cfg, err := config.NewClientConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("")
	}
	server := flag.String("s", cfg.ServerAddress, "paydesk server address")
	timeout := flag.Duration("t", 10*time.Second, "request timeout")
	quiet := flag.Bool("q", false, "log errors only")
	flag.Parse()
	cfg.ServerAddress = *server
	if *quiet {
		l := log.Level(zerolog.ErrorLevel)
		log = &l
	}
	if cfg.Token == "" {
		log.Fatal().Msg("PAYDESK_TOKEN must hold an administrator token")
	}

	desk, err := reviewer.NewController(client.InitClient(cfg, log), log)
	if err != nil {
		log.Fatal().Err(err).Msg("")
	}
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := run(ctx, desk, flag.Args(), os.Stdout); err != nil {
		cancel()
		log.Fatal().Err(err).Msg("")
	}
}

func run(ctx context.Context, desk *reviewer.Controller, args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("command required: pending, approve <id> or reject <id>")
	}
	switch args[0] {
	case "pending":
		if _, err := desk.ListPending(ctx); err != nil {
			return err
		}
	case "approve", "reject":
		if len(args) != 2 {
			return fmt.Errorf("%s requires exactly one request id", args[0])
		}
		decision := modelstorage.StatusApproved
		if args[0] == "reject" {
			decision = modelstorage.StatusRejected
		}
		reviewed, err := desk.Act(ctx, args[1], decision)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "payment request %s is %s\n\n", reviewed.ID, reviewed.Status)
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
	return printPending(out, desk.Pending())
}

func printPending(out io.Writer, pending []modeldto.PaymentRequest) error {
	if len(pending) == 0 {
		_, err := fmt.Fprintln(out, "no pending payment requests")
		return err
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSER\tTYPE\tAMOUNT\tMETHOD\tDETAILS\tCREATED")
	for _, request := range pending {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			request.ID, request.UserID, request.Type, request.Amount.StringFixed(2),
			request.Method, request.AccountDetails, request.CreatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}
