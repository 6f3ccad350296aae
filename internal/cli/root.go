package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"genfity-order-reports/internal/logger"
	"genfity-order-reports/internal/report"
	"genfity-order-reports/internal/services"
	"genfity-order-reports/internal/source"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// NewRootCommand builds reportctl. Flags can also come from REPORTCTL_*
// environment variables or a YAML config file.
func NewRootCommand(stdout io.Writer) *cobra.Command {
	v := viper.New()
	var cfgFile string

	root := &cobra.Command{
		Use:           "reportctl",
		Short:         "Builds order reports from exported order payloads",
		Long:          `reportctl aggregates a JSON order export offline and prints the summary or writes the xlsx/pdf report.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(v, cfgFile)
		},
	}
	root.SetOut(stdout)

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.reportctl.yaml)")
	root.PersistentFlags().String("input", "", "order payload file, - for stdin")
	root.PersistentFlags().String("partner", "", "partner id to filter orders by")
	root.PersistentFlags().String("mode", "today", "report period: today, month or custom")
	root.PersistentFlags().String("start-date", "", "custom period start (yyyy-mm-dd)")
	root.PersistentFlags().String("end-date", "", "custom period end (yyyy-mm-dd)")
	root.PersistentFlags().String("timezone", "Asia/Kolkata", "timezone the period is resolved in")
	root.PersistentFlags().String("currency", "INR", "currency code")
	root.PersistentFlags().String("currency-symbol", "₹", "currency symbol")
	root.PersistentFlags().String("now", "", "reference time (RFC3339), defaults to the current time")
	root.PersistentFlags().Bool("trust-aggregates", true, "use count/sum aggregates from the payload when present")
	root.PersistentFlags().Bool("verbose", false, "log skipped malformed records")
	_ = v.BindPFlags(root.PersistentFlags())

	root.AddCommand(newSummaryCommand(v), newExportCommand(v))
	return root
}

func initConfig(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(home)
		}
		v.SetConfigType("yaml")
		v.SetConfigName(".reportctl")
	}

	v.SetEnvPrefix("REPORTCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok || cfgFile == "" {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// run holds everything a subcommand needs to produce a report.
type run struct {
	service *services.ReportService
	request services.Request
	logger  *zap.Logger
}

func newRun(cmd *cobra.Command, v *viper.Viper) (*run, error) {
	snapshot, err := readSnapshot(cmd, v.GetString("input"))
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if raw := strings.TrimSpace(v.GetString("now")); raw != "" {
		now, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("invalid --now: %w", err)
		}
	}

	log := zap.NewNop()
	if v.GetBool("verbose") {
		if log, err = logger.New("development", "reportctl"); err != nil {
			return nil, err
		}
	}

	currency := report.Currency{
		Code:   strings.ToUpper(strings.TrimSpace(v.GetString("currency"))),
		Symbol: v.GetString("currency-symbol"),
	}
	settings := source.PartnerSettings{
		PartnerID:      v.GetString("partner"),
		CurrencyCode:   currency.Code,
		CurrencySymbol: currency.Symbol,
		Timezone:       v.GetString("timezone"),
	}
	svc := services.NewReportService(source.NewMemory(snapshot, settings), log, services.Options{
		DefaultCurrency:    currency,
		DefaultTimezone:    v.GetString("timezone"),
		TrustPreAggregates: v.GetBool("trust-aggregates"),
		Now:                func() time.Time { return now },
	})

	req, err := services.NewRequest(v.GetString("partner"), v.GetString("mode"), v.GetString("start-date"), v.GetString("end-date"))
	if err != nil {
		return nil, err
	}
	return &run{service: svc, request: req, logger: log}, nil
}

func readSnapshot(cmd *cobra.Command, input string) (source.Snapshot, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return source.Snapshot{}, fmt.Errorf("--input is required")
	}
	if input == "-" {
		return source.Decode(cmd.InOrStdin())
	}
	f, err := os.Open(input)
	if err != nil {
		return source.Snapshot{}, err
	}
	defer f.Close()
	return source.Decode(f)
}

func (r *run) generate(ctx context.Context) (*services.Report, error) {
	defer func() { _ = r.logger.Sync() }()
	return r.service.Generate(ctx, r.request)
}
