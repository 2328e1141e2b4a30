package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/agalol/chatbotornot/twitch"
)

type Config struct {
	accessToken     string
	bind            string
	clientID        string
	demo            bool
	displayMax      int
	eventsubURL     string
	helixURL        string
	interceptChance float64
	maxReconnects   int
	poolCapacity    int
	port            int
	prefix          string
	profile         bool
	redirectURI     string
	resultDelay     time.Duration
	roundTimeout    time.Duration
	tlsCert         string
	tlsKey          string
	verbose         bool
	version         bool
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.interceptChance < 0 || c.interceptChance > 1 {
		return fmt.Errorf("invalid intercept chance (must be between 0 and 1 inclusive): %v", c.interceptChance)
	}
	if c.clientID == "" && !c.demo {
		return errors.New("--client-id is required unless running with --demo")
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("CHATBOTORNOT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "chatbotornot",
		Short:         "A streamer companion that hides chat messages and makes you guess: chat, or chatbot?",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVar(&cfg.accessToken, "access-token", "", "pre-acquired user token, skips in-browser login (env: CHATBOTORNOT_ACCESS_TOKEN)")
	fs.StringVarP(&cfg.bind, "bind", "b", "127.0.0.1", "address to bind to (env: CHATBOTORNOT_BIND)")
	fs.StringVar(&cfg.clientID, "client-id", "", "Twitch application client id (env: CHATBOTORNOT_CLIENT_ID)")
	fs.BoolVar(&cfg.demo, "demo", false, "run against a synthetic chat feed instead of Twitch (env: CHATBOTORNOT_DEMO)")
	fs.IntVar(&cfg.displayMax, "display-max", 200, "visible chat lines kept before the oldest scroll out (env: CHATBOTORNOT_DISPLAY_MAX)")
	fs.StringVar(&cfg.eventsubURL, "eventsub-url", twitch.DefaultEventSubURL, "EventSub WebSocket endpoint (env: CHATBOTORNOT_EVENTSUB_URL)")
	fs.StringVar(&cfg.helixURL, "helix-url", twitch.DefaultHelixURL, "Helix API base URL (env: CHATBOTORNOT_HELIX_URL)")
	fs.Float64Var(&cfg.interceptChance, "intercept-chance", 0.5, "probability of diverting a chat message into the game pool (env: CHATBOTORNOT_INTERCEPT_CHANCE)")
	fs.IntVar(&cfg.maxReconnects, "max-reconnects", 5, "reconnect attempts before the session gives up (env: CHATBOTORNOT_MAX_RECONNECTS)")
	fs.IntVar(&cfg.poolCapacity, "pool-capacity", 25, "hidden message pool capacity (env: CHATBOTORNOT_POOL_CAPACITY)")
	fs.IntVarP(&cfg.port, "port", "p", 8160, "port to listen on (env: CHATBOTORNOT_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: CHATBOTORNOT_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: CHATBOTORNOT_PROFILE)")
	fs.StringVar(&cfg.redirectURI, "redirect-uri", "", "OAuth redirect URI registered for the client id, defaults to this server's root (env: CHATBOTORNOT_REDIRECT_URI)")
	fs.DurationVar(&cfg.resultDelay, "result-delay", 5*time.Second, "pause on a round result before the next round starts (env: CHATBOTORNOT_RESULT_DELAY)")
	fs.DurationVar(&cfg.roundTimeout, "round-timeout", 30*time.Second, "time before an unanswered round resolves with a random guess (env: CHATBOTORNOT_ROUND_TIMEOUT)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: CHATBOTORNOT_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: CHATBOTORNOT_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: CHATBOTORNOT_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: CHATBOTORNOT_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("chatbotornot v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
