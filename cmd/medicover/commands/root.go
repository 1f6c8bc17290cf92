package commands

import (
	"context"
	"io"
	"log/slog"
	"medicover-assist/internal/chrono"
	"medicover-assist/lib/configutil"
	"medicover-assist/lib/notify"
	"medicover-assist/lib/scrapers/medicover"
	"medicover-assist/lib/serviceutil"
	"medicover-assist/lib/telemetry"

	"github.com/mazen160/go-random"
	"github.com/spf13/cobra"
)

var (
	configPath *string
	envFile    *string
	debug      *bool
	dumpDir    *string
)

var rootCmd = &cobra.Command{
	Use:          "medicover",
	Short:        "medicover is a CLI for watching free appointment slots on the Medicover portal.",
	SilenceUsage: true,
}

func init() {
	configPath = rootCmd.PersistentFlags().String("config", "medicover.json5", "The config file, <name>.local.json5 overrides it.")
	envFile = rootCmd.PersistentFlags().String("env", ".env", "The .env file loaded before reading the environment.")
	debug = rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logs and dump every HTTP exchange.")
	dumpDir = rootCmd.PersistentFlags().String("dump-dir", ".dev/resty/medicover", "Where HTTP exchanges are dumped with --debug.")
}

func ExecuteContext(ctx context.Context) {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		serviceutil.Fatal("medicover failed", err)
	}
}

// session is everything a command needs to talk to the portal.
type session struct {
	config Config
	client *medicover.Client
	time   chrono.TimeAPI
	tel    telemetry.Telemetry
}

func (s session) close() {
	err := s.tel.Shutdown(context.Background())
	if err != nil {
		slog.Warn("failed to shutdown telemetry", "err", err)
	}
}

// setup loads the config, applying overrides on top of the file and the
// environment, and builds the session.
func setup(ctx context.Context, overrides ...func(*Config)) (session, error) {
	telemetry.InitSlog(*debug)

	runId, err := random.String(8)
	if err != nil {
		return session{}, err
	}
	slog.SetDefault(slog.Default().With("run", runId))

	err = configutil.LoadDotenv(*envFile)
	if err != nil {
		return session{}, err
	}
	cfg, err := loadConfig(*configPath, overrides...)
	if err != nil {
		return session{}, err
	}

	tel, err := telemetry.Setup(ctx, "medicover", cfg.Telemetry)
	if err != nil {
		return session{}, err
	}
	return newSession(cfg, tel)
}

// newSession shuts tel down when the client cannot be built.
func newSession(cfg Config, tel telemetry.Telemetry) (s session, err error) {
	defer func() {
		if err != nil {
			(session{tel: tel}).close()
		}
	}()

	opts := medicover.ClientOptions{
		BaseUrl:          cfg.BaseUrl,
		Telemetry:        telemetry.SlogAPI{},
		BypassCloudflare: cfg.BypassCloudflare,
	}
	if *debug {
		output, err := telemetry.NewFilesystemOutput(*dumpDir)
		if err != nil {
			return session{}, err
		}
		opts.Dump = output
	}
	client, err := medicover.NewClient(opts)
	if err != nil {
		return session{}, err
	}

	return session{
		config: cfg,
		client: client,
		time:   chrono.NewStandardTime(),
		tel:    tel,
	}, nil
}

// loggedIn runs fn inside a portal session.
func (s session) loggedIn(ctx context.Context, fn func(ctx context.Context) error) error {
	username, password, err := s.config.credentials()
	if err != nil {
		return err
	}
	slog.Info("logging in", "username", username)
	return s.client.LoggedIn(ctx, username, password, fn)
}

// notifier assembles every notifier the config enables, the console one is
// always there.
func (s session) notifier(out io.Writer) notify.Notifier {
	return buildNotifier(s.config, out)
}

func buildNotifier(cfg Config, out io.Writer) notify.Multi {
	notifiers := []notify.Notifier{notify.Console{Out: out}}
	if cfg.IftttKey != "" {
		notifiers = append(notifiers, notify.NewIfttt(cfg.IftttKey, ""))
	}
	if cfg.Desktop {
		notifiers = append(notifiers, notify.Desktop{})
	}
	if cfg.Smtp.Enabled() {
		notifiers = append(notifiers, notify.NewEmail(cfg.Smtp))
	}
	return notify.Multi{Notifiers: notifiers}
}
