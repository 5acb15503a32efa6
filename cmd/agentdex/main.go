package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip19"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Koda-Builds/agentdex-cli/internal/config"
	"github.com/Koda-Builds/agentdex-cli/internal/events"
	"github.com/Koda-Builds/agentdex-cli/internal/keys"
	"github.com/Koda-Builds/agentdex-cli/internal/nip05"
	"github.com/Koda-Builds/agentdex-cli/internal/nwc"
	"github.com/Koda-Builds/agentdex-cli/internal/payment"
	"github.com/Koda-Builds/agentdex-cli/internal/relay"
	"github.com/Koda-Builds/agentdex-cli/pkg/client"
)

// version is overridden by goreleaser via -ldflags "-X main.version=...".
var version = "dev"

// nip05Domain is the domain claimed names resolve under.
const nip05Domain = "agentdex.id"

var (
	cfgFile string
	apiFlag string
	verbose bool

	cfg    config.Config
	logger *zap.Logger
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "agentdex",
	Short: "agentdex directory CLI for autonomous agents",
	Long: `agentdex is the command-line interface to the agentdex directory.

It lets an agent (or its operator) register itself, claim a NIP-05 name,
verify and search other agents, and publish signed notes to Nostr relays.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
		if apiFlag != "" {
			cfg.APIBase = strings.TrimRight(apiFlag, "/")
		}

		logger = zap.NewNop()
		if verbose {
			logger, err = zap.NewDevelopment()
			if err != nil {
				return fmt.Errorf("build logger: %w", err)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.agentdex/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&apiFlag, "api", "", "directory backend URL (default "+config.DefaultAPIBase+")")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable debug logging")

	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(claimCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(keygenCmd)
	rootCmd.AddCommand(versionCmd)
}

// ── register ─────────────────────────────────────────────────────────────────

var (
	regNsec        string
	regKeyFile     string
	regName        string
	regDescription string
	regCaps        []string
	regFramework   string
	regModel       string
	regWebsite     string
	regAvatar      string
	regLightning   string
	regOwnerX      string
	regPolicy      string
	regMinTrust    int
	regFee         int
	regPortfolio   []string
	regSkills      []string
	regExperience  []string
	regNWC         string
	regAPIKey      string
	regRelays      []string
	regJSON        bool
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register this agent in the directory",
	Long: `register builds a signed profile record from the given fields, submits it
to the directory backend, and publishes it to the relay set.

When the backend requires a Lightning payment, the invoice is shown as a QR
code and the command waits for settlement. With a wallet-connect URI
configured (--nwc or AGENTDEX_NWC) the invoice is paid automatically.`,
	RunE: runRegister,
}

func init() {
	registerCmd.Flags().StringVar(&regNsec, "nsec", "", "Secret key (nsec or hex); overrides AGENTDEX_NSEC and the key file")
	registerCmd.Flags().StringVar(&regKeyFile, "key-file", "", "Key file path (default ~/.agentdex/key.json)")
	registerCmd.Flags().StringVar(&regName, "name", "", "Agent name (prompted when omitted)")
	registerCmd.Flags().StringVar(&regDescription, "description", "", "Short description of what the agent does")
	registerCmd.Flags().StringSliceVar(&regCaps, "capabilities", nil, "Capability list (e.g. chat,search)")
	registerCmd.Flags().StringVar(&regFramework, "framework", "", "Agent framework (e.g. langchain)")
	registerCmd.Flags().StringVar(&regModel, "model", "", "Underlying model name")
	registerCmd.Flags().StringVar(&regWebsite, "website", "", "Website URL")
	registerCmd.Flags().StringVar(&regAvatar, "avatar", "", "Avatar image URL")
	registerCmd.Flags().StringVar(&regLightning, "lightning", "", "Lightning address for receiving payments")
	registerCmd.Flags().StringVar(&regOwnerX, "owner-x", "", "Owner's X handle; marks the agent as human-operated")
	registerCmd.Flags().StringVar(&regPolicy, "messaging-policy", "", "Messaging policy: open, trusted, or closed")
	registerCmd.Flags().IntVar(&regMinTrust, "messaging-min-trust", 0, "Minimum trust score required to message this agent")
	registerCmd.Flags().IntVar(&regFee, "messaging-fee", 0, "Message fee in sats")
	registerCmd.Flags().StringArrayVar(&regPortfolio, "portfolio", nil, "Portfolio entry: url|name|description (repeatable)")
	registerCmd.Flags().StringSliceVar(&regSkills, "skills", nil, "Skill list")
	registerCmd.Flags().StringArrayVar(&regExperience, "experience", nil, "Experience entry (repeatable)")
	registerCmd.Flags().StringVar(&regNWC, "nwc", "", "Wallet-connect URI for automatic payment")
	registerCmd.Flags().StringVar(&regAPIKey, "api-key", "", "Backend API key")
	registerCmd.Flags().StringArrayVar(&regRelays, "relay", nil, "Extra relay (repeatable); appended to the default set")
	registerCmd.Flags().BoolVar(&regJSON, "json", false, "Output JSON")
}

func runRegister(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	key, err := keys.Resolve(regNsec, cfg.Nsec, regKeyFile)
	if err != nil {
		return err
	}

	stdin := bufio.NewReader(os.Stdin)
	name := strings.TrimSpace(regName)
	if name == "" && !regJSON {
		name = promptLine(stdin, "Agent name: ")
	}
	if name == "" {
		return errors.New("an agent name is required (--name)")
	}
	description := regDescription
	if description == "" && !regJSON && !cmd.Flags().Changed("description") {
		description = promptLine(stdin, "Description (Enter to skip): ")
	}
	capabilities := regCaps
	if len(capabilities) == 0 && !regJSON && !cmd.Flags().Changed("capabilities") {
		capabilities = splitList(promptLine(stdin, "Capabilities (comma-separated, Enter to skip): "))
	}

	// An explicit zero is meaningful for the messaging numbers, so only a
	// flag the user actually set reaches the profile.
	var minTrust, fee *int
	if cmd.Flags().Changed("messaging-min-trust") {
		minTrust = &regMinTrust
	}
	if cmd.Flags().Changed("messaging-fee") {
		fee = &regFee
	}

	profile := events.Profile{
		Name:              name,
		Description:       description,
		Capabilities:      capabilities,
		Framework:         regFramework,
		Model:             regModel,
		Website:           regWebsite,
		Avatar:            regAvatar,
		Human:             regOwnerX != "",
		Owner:             regOwnerX,
		Status:            "active",
		MessagingPolicy:   regPolicy,
		MessagingMinTrust: minTrust,
		MessagingFee:      fee,
		Portfolio:         parsePortfolio(regPortfolio),
		Skills:            regSkills,
		Experience:        regExperience,
	}

	record, err := events.BuildProfileRecord(key, profile)
	if err != nil {
		return err
	}

	c, err := newDirectoryClient(regAPIKey)
	if err != nil {
		return err
	}

	result, err := c.Register(ctx, record)
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}

	if result.Payment != nil {
		check := func(ctx context.Context) (bool, error) {
			status, err := c.RegisterStatus(ctx, result.Payment.PaymentHash)
			if err != nil {
				return false, err
			}
			return status.Paid, nil
		}
		if err := settlePayment(ctx, os.Stderr, result.Payment, check, walletURI(regNWC)); err != nil {
			return err
		}
	}

	accepted := publishRecord(ctx, record, regRelays)

	// A metadata record alongside the profile lets general-purpose clients
	// display the agent. Lightning address travels only here.
	var metaID string
	if meta, err := events.BuildMetadataRecord(key, events.Metadata{
		Name:    name,
		About:   description,
		Picture: regAvatar,
		Website: regWebsite,
		Lud16:   regLightning,
	}); err == nil {
		publishRecord(ctx, meta, regRelays)
		metaID = meta.ID
	}

	if regJSON {
		return printJSON(struct {
			Name       string   `json:"name"`
			Pubkey     string   `json:"pubkey"`
			Npub       string   `json:"npub"`
			EventID    string   `json:"event_id"`
			MetadataID string   `json:"metadata_id,omitempty"`
			Relays     []string `json:"relays"`
		}{name, key.PublicHex, key.Npub, record.ID, metaID, accepted})
	}

	fmt.Printf("\n✓ Agent registered\n\n")
	fmt.Printf("  Name:   %s\n", name)
	fmt.Printf("  Npub:   %s\n", key.Npub)
	fmt.Printf("  Event:  %s\n", record.ID)
	reportRelays(accepted, len(cfg.Relays(regRelays...)))
	fmt.Printf("\nNext: agentdex claim <name> to claim your %s identity\n", nip05Domain)
	return nil
}

// ── claim ─────────────────────────────────────────────────────────────────────

var (
	claimNsec      string
	claimKeyFile   string
	claimNWC       string
	claimAPIKey    string
	claimSkipKind0 bool
	claimRelays    []string
	claimJSON      bool
)

// claimNameRe constrains names to NIP-05 local parts the backend accepts.
var claimNameRe = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,63}$`)

var claimCmd = &cobra.Command{
	Use:   "claim <name>",
	Short: "Claim a NIP-05 name under " + nip05Domain,
	Long: `claim reserves <name>@` + nip05Domain + ` for this agent's key.

Claiming usually requires a Lightning payment: the backend answers with an
invoice, the command waits for settlement, then publishes the profile and a
metadata record carrying the verified NIP-05 identifier.`,
	Args: cobra.ExactArgs(1),
	RunE: runClaim,
}

func init() {
	claimCmd.Flags().StringVar(&claimNsec, "nsec", "", "Secret key (nsec or hex); overrides AGENTDEX_NSEC and the key file")
	claimCmd.Flags().StringVar(&claimKeyFile, "key-file", "", "Key file path (default ~/.agentdex/key.json)")
	claimCmd.Flags().StringVar(&claimNWC, "nwc", "", "Wallet-connect URI for automatic payment")
	claimCmd.Flags().StringVar(&claimAPIKey, "api-key", "", "Backend API key")
	claimCmd.Flags().BoolVar(&claimSkipKind0, "skip-kind0", false, "Do not publish a metadata record with the NIP-05 name")
	claimCmd.Flags().StringArrayVar(&claimRelays, "relay", nil, "Extra relay (repeatable); appended to the default set")
	claimCmd.Flags().BoolVar(&claimJSON, "json", false, "Output JSON")
}

func runClaim(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	name := strings.ToLower(strings.TrimSpace(args[0]))
	if !claimNameRe.MatchString(name) {
		return fmt.Errorf("invalid name %q: use lowercase letters, digits, and hyphens", args[0])
	}

	key, err := keys.Resolve(claimNsec, cfg.Nsec, claimKeyFile)
	if err != nil {
		return err
	}

	record, err := events.BuildProfileRecord(key, events.Profile{Name: name, Status: "active"})
	if err != nil {
		return err
	}

	c, err := newDirectoryClient(claimAPIKey)
	if err != nil {
		return err
	}

	result, err := c.Claim(ctx, name, record)
	if err != nil {
		return fmt.Errorf("claim %q: %w", name, err)
	}

	if result.Payment != nil {
		check := func(ctx context.Context) (bool, error) {
			status, err := c.ClaimStatus(ctx, result.Payment.PaymentHash)
			if err != nil {
				return false, err
			}
			return status.Paid, nil
		}
		if err := settlePayment(ctx, os.Stderr, result.Payment, check, walletURI(claimNWC)); err != nil {
			return err
		}
	}

	accepted := publishRecord(ctx, record, claimRelays)

	// The metadata record is what makes <name>@agentdex.id resolvable in
	// general-purpose clients.
	var metaID string
	if !claimSkipKind0 {
		meta, err := events.BuildMetadataRecord(key, events.Metadata{
			Name:  name,
			NIP05: name + "@" + nip05Domain,
		})
		if err != nil {
			return err
		}
		publishRecord(ctx, meta, claimRelays)
		metaID = meta.ID
	}

	if claimJSON {
		return printJSON(struct {
			Name       string   `json:"name"`
			NIP05      string   `json:"nip05"`
			Pubkey     string   `json:"pubkey"`
			Npub       string   `json:"npub"`
			EventID    string   `json:"event_id"`
			MetadataID string   `json:"metadata_id,omitempty"`
			Relays     []string `json:"relays"`
		}{name, name + "@" + nip05Domain, key.PublicHex, key.Npub, record.ID, metaID, accepted})
	}

	fmt.Printf("\n✓ Name claimed\n\n")
	fmt.Printf("  NIP-05: %s@%s\n", name, nip05Domain)
	fmt.Printf("  Npub:   %s\n", key.Npub)
	reportRelays(accepted, len(cfg.Relays(claimRelays...)))
	fmt.Printf("\nVerify with: agentdex verify %s\n", name)
	return nil
}

// ── verify ───────────────────────────────────────────────────────────────────

var verifyJSON bool

var verifyCmd = &cobra.Command{
	Use:   "verify <npub | pubkey | name | name@domain>",
	Short: "Look up an agent in the directory",
	Long: `verify looks an agent up by npub, hex pubkey, or directory name.

An identifier of the form name@domain is first resolved live against the
domain's /.well-known/nostr.json, then the resolved key is checked against
the directory.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := strings.TrimSpace(args[0])
		var hints []string
		if strings.Contains(id, "@") {
			resolved, err := nip05.New(nip05.Config{}, logger).Resolve(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("resolve %s: %w", id, err)
			}
			if !verifyJSON {
				fmt.Printf("✓ %s resolves to %s\n", strings.ToLower(id), npubFor("", resolved.Pubkey))
			}
			id = resolved.Pubkey
			hints = resolved.Relays
		} else if pk, err := keys.ParsePublicKey(id); err == nil {
			id = pk
		}

		c, err := newDirectoryClient("")
		if err != nil {
			return err
		}

		result, err := c.Verify(cmd.Context(), id)
		if err != nil {
			if errors.Is(err, client.ErrNotFound) {
				return fmt.Errorf("no agent matches %q", args[0])
			}
			return fmt.Errorf("verify: %w", err)
		}

		if verifyJSON {
			return printJSON(result)
		}

		if result.Verified {
			fmt.Println("✓ Verified agent")
		} else {
			fmt.Println("✗ Known but unverified")
		}
		if result.Name != "" {
			fmt.Printf("  Name:   %s@%s\n", result.Name, nip05Domain)
		}
		if result.Pubkey != "" {
			fmt.Printf("  Npub:   %s\n", npubFor(result.Npub, result.Pubkey))
		}
		if result.TrustScore > 0 {
			fmt.Printf("  Trust:  %d\n", result.TrustScore)
		}
		if !result.RegisteredAt.IsZero() {
			fmt.Printf("  Since:  %s\n", result.RegisteredAt.Format("2006-01-02"))
		}
		if len(hints) > 0 {
			fmt.Printf("  Relays: %s\n", strings.Join(hints, ", "))
		}
		return nil
	},
}

func init() {
	verifyCmd.Flags().BoolVar(&verifyJSON, "json", false, "Output JSON")
}

// ── search ───────────────────────────────────────────────────────────────────

var (
	searchCapability string
	searchFramework  string
	searchStatus     string
	searchMinTrust   int
	searchLimit      int
	searchJSON       bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the directory for agents",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := client.SearchFilter{
			Capability: searchCapability,
			Framework:  searchFramework,
			Status:     searchStatus,
			MinTrust:   searchMinTrust,
			Limit:      searchLimit,
		}
		if len(args) == 1 {
			filter.Query = args[0]
		}

		c, err := newDirectoryClient("")
		if err != nil {
			return err
		}

		agents, err := c.Search(cmd.Context(), filter)
		if err != nil {
			return fmt.Errorf("search: %w", err)
		}

		if searchJSON {
			return printJSON(agents)
		}
		if len(agents) == 0 {
			fmt.Println("No agents found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tNPUB\tCAPABILITIES\tSTATUS\tTRUST")
		for _, a := range agents {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n",
				a.Name,
				shorten(npubFor(a.Npub, a.Pubkey), 20),
				strings.Join(a.Capabilities, ","),
				a.Status,
				a.TrustScore,
			)
		}
		return w.Flush()
	},
}

func init() {
	searchCmd.Flags().StringVar(&searchCapability, "capability", "", "Filter by capability")
	searchCmd.Flags().StringVar(&searchFramework, "framework", "", "Filter by framework")
	searchCmd.Flags().StringVar(&searchStatus, "status", "", "Filter by status")
	searchCmd.Flags().IntVar(&searchMinTrust, "min-trust", 0, "Minimum trust score")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 20, "Maximum results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "Output JSON")
}

// ── whoami ───────────────────────────────────────────────────────────────────

var (
	whoamiNsec    string
	whoamiKeyFile string
	whoamiJSON    bool
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show this agent's identity and registration state",
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := keys.Resolve(whoamiNsec, cfg.Nsec, whoamiKeyFile)
		if err != nil {
			return err
		}

		c, err := newDirectoryClient("")
		if err != nil {
			return err
		}
		result, err := c.Verify(cmd.Context(), key.PublicHex)
		registered := true
		switch {
		case errors.Is(err, client.ErrNotFound):
			registered = false
			result = &client.VerifyResult{}
		case err != nil:
			return fmt.Errorf("directory lookup: %w", err)
		}

		if whoamiJSON {
			return printJSON(struct {
				Npub       string `json:"npub"`
				Pubkey     string `json:"pubkey"`
				Registered bool   `json:"registered"`
				Verified   bool   `json:"verified"`
				Name       string `json:"name,omitempty"`
			}{key.Npub, key.PublicHex, registered, result.Verified, result.Name})
		}

		fmt.Printf("Npub:   %s\n", key.Npub)
		fmt.Printf("Pubkey: %s\n", key.PublicHex)
		switch {
		case !registered:
			fmt.Println("Status: not registered (run: agentdex register)")
		case result.Verified:
			if result.Name != "" {
				fmt.Printf("Name:   %s@%s\n", result.Name, nip05Domain)
			}
			fmt.Println("Status: registered ✓")
		default:
			fmt.Println("Status: registered, unverified")
		}
		return nil
	},
}

func init() {
	whoamiCmd.Flags().StringVar(&whoamiNsec, "nsec", "", "Secret key (nsec or hex)")
	whoamiCmd.Flags().StringVar(&whoamiKeyFile, "key-file", "", "Key file path (default ~/.agentdex/key.json)")
	whoamiCmd.Flags().BoolVar(&whoamiJSON, "json", false, "Output JSON")
}

// ── publish ──────────────────────────────────────────────────────────────────

var (
	publishNsec    string
	publishKeyFile string
	publishRelays  []string
)

var publishCmd = &cobra.Command{
	Use:   "publish <message>",
	Short: "Publish a signed note to the relay set",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		message := args[0]
		if strings.TrimSpace(message) == "" {
			return errors.New("message must not be empty")
		}

		key, err := keys.Resolve(publishNsec, cfg.Nsec, publishKeyFile)
		if err != nil {
			return err
		}

		note, err := events.BuildNoteRecord(key, message)
		if err != nil {
			return err
		}

		accepted := publishRecord(cmd.Context(), note, publishRelays)
		reportRelays(accepted, len(cfg.Relays(publishRelays...)))
		if len(accepted) > 0 {
			fmt.Printf("Event: %s\n", note.ID)
		}
		return nil
	},
}

func init() {
	publishCmd.Flags().StringVar(&publishNsec, "nsec", "", "Secret key (nsec or hex)")
	publishCmd.Flags().StringVar(&publishKeyFile, "key-file", "", "Key file path (default ~/.agentdex/key.json)")
	publishCmd.Flags().StringArrayVar(&publishRelays, "relay", nil, "Extra relay (repeatable); appended to the default set")
}

// ── keygen ───────────────────────────────────────────────────────────────────

var (
	keygenSave bool
	keygenFile string
	keygenJSON bool
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a fresh keypair",
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := keys.Generate()
		if err != nil {
			return err
		}

		var savedTo string
		if keygenSave {
			savedTo = keygenFile
			if savedTo == "" {
				savedTo = keys.DefaultKeyFile()
			}
			if _, err := os.Stat(savedTo); err == nil {
				return fmt.Errorf("refusing to overwrite existing key file %s", savedTo)
			}
			if err := key.Save(savedTo); err != nil {
				return err
			}
		}

		if keygenJSON {
			return printJSON(struct {
				Npub    string `json:"npub"`
				Nsec    string `json:"nsec"`
				Pubkey  string `json:"pubkey"`
				SavedTo string `json:"saved_to,omitempty"`
			}{key.Npub, key.Nsec, key.PublicHex, savedTo})
		}

		fmt.Printf("Npub: %s\n", key.Npub)
		fmt.Printf("Nsec: %s\n", key.Nsec)
		if savedTo != "" {
			fmt.Printf("\nSaved to %s (mode 0600)\n", savedTo)
		}
		fmt.Println("\nKeep the nsec secret. Anyone holding it controls this identity.")
		return nil
	},
}

func init() {
	keygenCmd.Flags().BoolVar(&keygenSave, "save", false, "Write the key file")
	keygenCmd.Flags().StringVar(&keygenFile, "key-file", "", "Key file path (default ~/.agentdex/key.json)")
	keygenCmd.Flags().BoolVar(&keygenJSON, "json", false, "Output JSON")
}

// ── version ──────────────────────────────────────────────────────────────────

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the agentdex CLI version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("agentdex %s\n", version)
	},
}

// ── shared helpers ───────────────────────────────────────────────────────────

// newDirectoryClient builds the backend client with flag > config precedence
// for the API key. Every command shares the same rate ceiling so status poll
// loops and scripted retries cannot hammer the backend.
func newDirectoryClient(flagKey string) (*client.Client, error) {
	opts := []client.Option{
		client.WithUserAgent("agentdex-cli/" + version),
		client.WithRateLimit(5, 10),
	}
	apiKey := flagKey
	if apiKey == "" {
		apiKey = cfg.APIKey
	}
	if apiKey != "" {
		opts = append(opts, client.WithAPIKey(apiKey))
	}
	return client.New(cfg.APIBase, opts...)
}

// walletURI applies flag > config precedence for the wallet-connect URI.
func walletURI(flagURI string) string {
	if flagURI != "" {
		return flagURI
	}
	return cfg.NWCURI
}

// settlePayment presents the invoice, tries the connected wallet when one is
// configured, and polls the backend until the payment settles. Wallet
// failure is only a warning; the invoice stays payable by hand. Everything
// human-facing goes to out (the commands pass stderr) so --json output on
// stdout stays parseable.
func settlePayment(ctx context.Context, out io.Writer, pp *client.PendingPayment, check payment.CheckFunc, nwcURI string) error {
	amount := pp.AmountSats
	if details, err := payment.DescribeInvoice(pp.Invoice); err == nil && amount == 0 {
		amount = details.AmountSats
	}
	payment.PresentInvoice(out, pp.Invoice, amount, pp.ExpiresAt)

	if nwcURI != "" {
		fmt.Fprintln(out, "\nPaying via connected wallet...")
		if err := payWithWallet(ctx, nwcURI, pp.Invoice); err != nil {
			fmt.Fprintf(out, "Warning: wallet payment failed: %v\nPay the invoice manually to continue.\n", err)
		} else {
			fmt.Fprintln(out, "✓ Wallet reports payment sent")
		}
	}

	fmt.Fprintln(out)
	spinner := []string{"|", "/", "-", "\\"}
	spinIdx := 0
	poller := payment.New(logger)
	outcome, err := poller.Await(ctx, func(ctx context.Context) (bool, error) {
		fmt.Fprintf(out, "\rWaiting for payment... %s ", spinner[spinIdx%len(spinner)])
		spinIdx++
		return check(ctx)
	})
	fmt.Fprintln(out)
	if err != nil {
		fmt.Fprintln(out, "The invoice may still be paid later; rerun the command once it settles.")
		return fmt.Errorf("payment wait cancelled: %w", err)
	}
	if outcome != payment.Paid {
		return fmt.Errorf("payment not received within %s; the invoice is treated as expired", payment.DefaultTimeout)
	}

	fmt.Fprintln(out, "✓ Payment received")
	return nil
}

func payWithWallet(ctx context.Context, uri, invoice string) error {
	wallet, err := nwc.NewClient(uri, logger)
	if err != nil {
		return err
	}
	preimage, err := wallet.PayInvoice(ctx, invoice)
	if err != nil {
		return err
	}
	logger.Debug("nwc: invoice paid", zap.String("preimage", preimage))
	return nil
}

// publishRecord fans the record out to the default relays plus any extras.
func publishRecord(ctx context.Context, ev nostr.Event, extra []string) []string {
	pub := relay.New(0, logger)
	return pub.Publish(ctx, ev, cfg.Relays(extra...))
}

func reportRelays(accepted []string, total int) {
	if len(accepted) == 0 {
		fmt.Printf("Warning: no relay accepted the record (%d attempted)\n", total)
		return
	}
	fmt.Printf("Published to %d/%d relays: %s\n", len(accepted), total, strings.Join(accepted, ", "))
}

func promptLine(r *bufio.Reader, label string) string {
	fmt.Print(label)
	line, _ := r.ReadString('\n')
	return strings.TrimSpace(line)
}

// splitList turns a comma-separated prompt answer into a clean slice.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// parsePortfolio splits repeatable url|name|description flag values.
func parsePortfolio(entries []string) []events.PortfolioItem {
	var out []events.PortfolioItem
	for _, entry := range entries {
		parts := strings.SplitN(entry, "|", 3)
		item := events.PortfolioItem{URL: strings.TrimSpace(parts[0])}
		if len(parts) > 1 {
			item.Name = strings.TrimSpace(parts[1])
		}
		if len(parts) > 2 {
			item.Description = strings.TrimSpace(parts[2])
		}
		if item.URL != "" {
			out = append(out, item)
		}
	}
	return out
}

// npubFor prefers the backend-supplied npub, deriving one from the hex key
// otherwise.
func npubFor(npub, pubkey string) string {
	if npub != "" {
		return npub
	}
	if encoded, err := nip19.EncodePublicKey(pubkey); err == nil {
		return encoded
	}
	return pubkey
}

func shorten(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
