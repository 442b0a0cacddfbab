package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	goruntime "runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ashwch/coreshell/internal/appdirs"
	"github.com/ashwch/coreshell/internal/command"
	"github.com/ashwch/coreshell/internal/config"
	"github.com/ashwch/coreshell/internal/favorites"
	"github.com/ashwch/coreshell/internal/i18n"
	"github.com/ashwch/coreshell/internal/knowledge"
	"github.com/ashwch/coreshell/internal/logging"
	"github.com/ashwch/coreshell/internal/provider"
	"github.com/ashwch/coreshell/internal/resolver"
	"github.com/ashwch/coreshell/internal/ui"
	"github.com/atotto/clipboard"
	"go.uber.org/zap"
)

var version = "dev"

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

// removeUnset is the --remove default; 0 opens the picker.
const removeUnset = -1

type options struct {
	Provider   string
	Model      string
	Locale     string
	UI         string
	Filter     string
	Remove     int
	JSON       bool
	Quiet      bool
	Offline    bool
	Add        bool
	Favorites  bool
	List       bool
	Persist    bool
	ShowConfig bool
	SetupKey   bool
	Copy       bool
	Version    bool
}

type response struct {
	Query      string            `json:"query,omitempty"`
	Status     string            `json:"status,omitempty"`
	Origin     string            `json:"origin,omitempty"`
	Record     *command.Record   `json:"record,omitempty"`
	Message    string            `json:"message,omitempty"`
	Saved      string            `json:"saved,omitempty"`
	Copied     bool              `json:"copied,omitempty"`
	Favorites  []favorites.Match `json:"favorites,omitempty"`
	Entries    []knowledge.Entry `json:"entries,omitempty"`
	Results    interface{}       `json:"results,omitempty"`
	Issues     []string          `json:"issues,omitempty"`
	ConfigPath string            `json:"config_path,omitempty"`
}

// cli carries everything one invocation needs; tests swap the streams.
type cli struct {
	opts    options
	cfg     config.Config
	cfgPath string
	catalog i18n.Catalog
	logger  *zap.Logger
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
	// interactive reports whether prompts and the TUI may take the terminal.
	interactive bool
	copy        func(string) error
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts, query, err := parseArgs(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintf(stderr, "coreshell: %v\n", err)
		return exitUsage
	}
	if opts.Version {
		fmt.Fprintln(stdout, version)
		return exitOK
	}

	cfg, cfgPath, err := config.LoadOrCreate()
	if err != nil {
		fmt.Fprintf(stderr, "coreshell: could not load config: %v\n", err)
		return exitFailure
	}

	changes := flagOverrides(opts, cfg)
	for _, key := range sortedKeys(changes) {
		if err := cfg.Set(key, changes[key]); err != nil {
			fmt.Fprintf(stderr, "coreshell: invalid value for %s: %v\n", key, err)
			return exitUsage
		}
	}
	if opts.Persist && len(changes) > 0 {
		if err := config.Save(cfgPath, cfg); err != nil {
			fmt.Fprintf(stderr, "coreshell: could not save config: %v\n", err)
			return exitFailure
		}
	}

	logger := buildLogger(cfg, stderr)
	defer func() { _ = logger.Sync() }()

	c := &cli{
		opts:        opts,
		cfg:         cfg,
		cfgPath:     cfgPath,
		catalog:     i18n.LoadCatalog(catalogLocale(cfg.Locale)),
		logger:      logger,
		stdin:       stdin,
		stdout:      stdout,
		stderr:      stderr,
		interactive: canUseInteractiveUI(opts, cfg.UI.Backend, stdin, stdout),
		copy:        clipboard.WriteAll,
	}
	return c.dispatch(query, len(changes) > 0)
}

func (c *cli) dispatch(query string, changed bool) int {
	switch {
	case c.opts.ShowConfig:
		return c.showConfig()
	case c.opts.SetupKey:
		return c.setupKey()
	case c.opts.List:
		return c.listKnowledge()
	case c.opts.Remove != removeUnset:
		return c.removeFavorite()
	case c.opts.Favorites || strings.TrimSpace(c.opts.Filter) != "":
		return c.listFavorites()
	}

	if query == "" {
		if changed && c.opts.Persist {
			c.print(response{Message: "saved settings", ConfigPath: c.cfgPath})
			return exitOK
		}
		if c.interactive {
			return c.runTUI()
		}
		fmt.Fprintf(c.stderr, "coreshell: %s\n", c.catalog.Messages.EmptyQuery)
		return exitUsage
	}
	return c.resolve(query)
}

func parseArgs(args []string, output io.Writer) (options, string, error) {
	fs := flag.NewFlagSet("coreshell", flag.ContinueOnError)
	fs.SetOutput(output)

	var opts options
	fs.StringVar(&opts.Provider, "provider", "", "override AI provider: auto|none|gemini|claude|ollama")
	fs.StringVar(&opts.Model, "model", "", "override model alias for this invocation")
	fs.StringVar(&opts.Locale, "locale", "", "override locale: auto|en|es")
	fs.StringVar(&opts.UI, "ui", "", "override ui backend: auto|bubbletea|huh|tview|plain")
	fs.StringVar(&opts.Filter, "filter", "", "fuzzy filter favorites by name")
	fs.IntVar(&opts.Remove, "remove", removeUnset, "remove favorite n (1-based); 0 opens a picker")
	fs.BoolVar(&opts.JSON, "json", false, "output JSON")
	fs.BoolVar(&opts.Quiet, "quiet", false, "print only the command for this OS")
	fs.BoolVar(&opts.Offline, "offline", false, "skip the AI fallback")
	fs.BoolVar(&opts.Add, "add", false, "save the result to favorites")
	fs.BoolVar(&opts.Favorites, "favorites", false, "list favorites")
	fs.BoolVar(&opts.List, "list", false, "print the local knowledge base")
	fs.BoolVar(&opts.Persist, "persist", false, "save flag overrides to the config file")
	fs.BoolVar(&opts.ShowConfig, "show-config", false, "show effective settings and exit")
	fs.BoolVar(&opts.SetupKey, "setup-key", false, "prompt for a Gemini API key and store it")
	fs.BoolVar(&opts.Copy, "copy", false, "copy the command for this OS to the clipboard")
	fs.BoolVar(&opts.Version, "version", false, "print version")

	if err := fs.Parse(args); err != nil {
		return options{}, "", err
	}
	if opts.Remove < removeUnset {
		return options{}, "", fmt.Errorf("--remove must be 0 or a favorite number")
	}
	if opts.JSON && opts.Quiet {
		return options{}, "", fmt.Errorf("--json and --quiet cannot be combined")
	}
	query := strings.TrimSpace(strings.Join(fs.Args(), " "))
	return opts, query, nil
}

// flagOverrides maps per-invocation flags onto config keys.
func flagOverrides(opts options, cfg config.Config) map[string]string {
	changes := map[string]string{}
	if v := strings.TrimSpace(opts.Provider); v != "" {
		changes["provider"] = v
	}
	if v := strings.TrimSpace(opts.Locale); v != "" {
		changes["locale"] = v
	}
	if v := strings.TrimSpace(opts.UI); v != "" {
		changes["ui.backend"] = v
	}
	if v := strings.TrimSpace(opts.Model); v != "" {
		target := strings.TrimSpace(opts.Provider)
		if target == "" {
			target = cfg.Provider
		}
		if target == "" || target == config.ProviderAuto || target == config.ProviderNone {
			target = "gemini"
		}
		changes["providers."+target+".model"] = v
	}
	return changes
}

func catalogLocale(setting string) string {
	if strings.EqualFold(strings.TrimSpace(setting), "auto") {
		return ""
	}
	return setting
}

func buildLogger(cfg config.Config, stderr io.Writer) *zap.Logger {
	path := strings.TrimSpace(cfg.Log.File)
	if path == "" {
		resolved, err := appdirs.StateFilePath(logging.DefaultFileName)
		if err != nil {
			return zap.NewNop()
		}
		path = resolved
	}
	logger, err := logging.New(cfg.Log.Level, path)
	if err != nil {
		fmt.Fprintf(stderr, "coreshell: logging disabled: %v\n", err)
		return zap.NewNop()
	}
	return logger
}

func (c *cli) newResolver() (*resolver.Resolver, error) {
	kb, err := knowledge.Builtin()
	if err != nil {
		return nil, err
	}

	var ai resolver.Generator
	if !c.opts.Offline {
		svc := provider.NewService(provider.NewRegistry(), c.logger)
		chain, err := svc.Build(c.cfg, strings.TrimSpace(c.opts.Provider), strings.TrimSpace(c.opts.Model))
		if err != nil {
			c.logger.Info("AI tier disabled", zap.String("reason", err.Error()))
		} else {
			c.logger.Debug("AI tier ready", zap.Strings("providers", chain.Names()))
			ai = chain
		}
	}

	timeout := time.Duration(c.cfg.AI.TimeoutSeconds) * time.Second
	return resolver.New(kb, ai,
		resolver.WithTimeout(timeout),
		resolver.WithLogger(c.logger),
		resolver.WithMessages(c.catalog.Messages),
	), nil
}

func (c *cli) openStore() (*favorites.Store, func() error, error) {
	backend, closeFn, err := favorites.OpenBackend(c.cfg.Favorites.Backend, c.cfg.Favorites.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("could not open favorites: %w", err)
	}
	return favorites.NewStore(backend, c.logger), closeFn, nil
}

func (c *cli) resolve(query string) int {
	r, err := c.newResolver()
	if err != nil {
		fmt.Fprintf(c.stderr, "coreshell: could not load knowledge base: %v\n", err)
		return exitFailure
	}

	var outcome resolver.Outcome
	c.withLoader(func() {
		outcome = r.Resolve(context.Background(), query)
	})

	payload := response{
		Query:   query,
		Status:  string(outcome.Status),
		Origin:  string(outcome.Origin),
		Message: outcome.Message,
	}
	if !outcome.Found() {
		failed := outcome.Status == resolver.StatusAIFailed
		switch {
		case c.opts.JSON:
			c.print(payload)
		case c.opts.Quiet || failed:
			fmt.Fprintf(c.stderr, "coreshell: %s\n", outcome.Message)
		default:
			c.print(payload)
		}
		if failed {
			return exitFailure
		}
		return exitOK
	}

	record := outcome.Record
	payload.Record = &record
	code := exitOK
	if c.opts.Add {
		saved, err := c.addFavorite(record)
		if err != nil {
			fmt.Fprintf(c.stderr, "coreshell: %v\n", err)
			code = exitFailure
		} else {
			payload.Saved = saved.String()
		}
	}
	if c.opts.Copy {
		text := commandForOS(record)
		if err := c.copy(text); err != nil {
			fmt.Fprintf(c.stderr, "coreshell: %s\n", fmt.Sprintf(c.catalog.Messages.CopyFailed, err.Error()))
		} else {
			payload.Copied = true
		}
	}

	if c.opts.Quiet {
		fmt.Fprintln(c.stdout, commandForOS(record))
		return code
	}
	if c.opts.JSON {
		c.print(payload)
		return code
	}
	c.printRecord(record, outcome.Origin)
	if payload.Saved != "" {
		msg := c.catalog.Messages.Saved
		if payload.Saved == favorites.AlreadyExists.String() {
			msg = c.catalog.Messages.AlreadySaved
		}
		fmt.Fprintln(c.stdout, fmt.Sprintf(msg, record.Name))
	}
	if payload.Copied {
		fmt.Fprintln(c.stdout, fmt.Sprintf(c.catalog.Messages.Copied, commandForOS(record)))
	}
	return code
}

func (c *cli) addFavorite(record command.Record) (favorites.AddResult, error) {
	store, closeFn, err := c.openStore()
	if err != nil {
		return 0, err
	}
	defer closeFn()
	return store.Add(record)
}

func (c *cli) listFavorites() int {
	store, closeFn, err := c.openStore()
	if err != nil {
		fmt.Fprintf(c.stderr, "coreshell: %v\n", err)
		return exitFailure
	}
	defer closeFn()

	matches := store.Filter(c.opts.Filter)
	if c.opts.JSON {
		c.print(response{Favorites: matches})
		return exitOK
	}
	if c.opts.Quiet {
		for _, match := range matches {
			fmt.Fprintln(c.stdout, commandForOS(match.Record))
		}
		return exitOK
	}
	msgs := c.catalog.Messages
	fmt.Fprintf(c.stdout, "%s (%d)\n", msgs.FavoritesTitle, store.Len())
	if store.Len() == 0 {
		fmt.Fprintln(c.stdout, msgs.EmptyFavorites)
		return exitOK
	}
	for _, match := range matches {
		record := match.Record
		fmt.Fprintf(c.stdout, "%2d. %s  %s\n", match.Index+1, record.Name, record.Desc)
		fmt.Fprintf(c.stdout, "    %s: %s\n", msgs.MacHeader, record.Mac)
		fmt.Fprintf(c.stdout, "    %s: %s\n", msgs.WinHeader, record.Win)
	}
	return exitOK
}

func (c *cli) removeFavorite() int {
	store, closeFn, err := c.openStore()
	if err != nil {
		fmt.Fprintf(c.stderr, "coreshell: %v\n", err)
		return exitFailure
	}
	defer closeFn()

	index := c.opts.Remove - 1
	if c.opts.Remove == 0 {
		if !c.interactive {
			fmt.Fprintln(c.stderr, "coreshell: --remove 0 needs an interactive terminal; pass a favorite number instead")
			return exitUsage
		}
		picked, ok, code := c.pickFavorite(store)
		if !ok {
			return code
		}
		index = picked
	}

	removed, err := store.Remove(index)
	if err != nil {
		fmt.Fprintf(c.stderr, "coreshell: %v\n", err)
		if errors.Is(err, favorites.ErrOutOfRange) {
			return exitUsage
		}
		return exitFailure
	}
	c.print(response{Message: fmt.Sprintf(c.catalog.Messages.Removed, removed.Name), Record: &removed})
	return exitOK
}

// pickFavorite runs the picker and removal confirmation. ok is false when
// nothing should be removed; code is then the exit code to return.
func (c *cli) pickFavorite(store *favorites.Store) (index int, ok bool, code int) {
	msgs := c.catalog.Messages
	matches := store.Filter(c.opts.Filter)
	if len(matches) == 0 {
		c.print(response{Message: msgs.EmptyFavorites})
		return -1, false, exitOK
	}
	backend := ui.NormalizeBackend(c.cfg.UI.Backend)
	picked, used, err := ui.SelectFavorite(backend, msgs.FavoritesTitle, matches)
	if err != nil || !used {
		if err != nil {
			fmt.Fprintf(c.stderr, "coreshell: picker unavailable: %v\n", err)
		}
		return -1, false, exitFailure
	}
	if picked < 0 {
		return -1, false, exitOK
	}

	name := store.List()[picked].Name
	approved, used, err := ui.ConfirmRemoval(backend, fmt.Sprintf(msgs.ConfirmRemove, name))
	if err != nil || !used {
		approved = c.confirmPlain(fmt.Sprintf(msgs.ConfirmRemove, name))
	}
	if !approved {
		return -1, false, exitOK
	}
	return picked, true, exitOK
}

func (c *cli) confirmPlain(question string) bool {
	fmt.Fprintf(c.stderr, "%s [y/N]: ", question)
	line, err := bufio.NewReader(c.stdin).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes", "s", "si", "sí":
		return true
	default:
		return false
	}
}

func (c *cli) listKnowledge() int {
	kb, err := knowledge.Builtin()
	if err != nil {
		fmt.Fprintf(c.stderr, "coreshell: could not load knowledge base: %v\n", err)
		return exitFailure
	}
	entries := kb.Entries()
	if c.opts.JSON {
		c.print(response{Entries: entries})
		return exitOK
	}
	for _, entry := range entries {
		if c.opts.Quiet {
			fmt.Fprintln(c.stdout, entry.Phrase)
			continue
		}
		fmt.Fprintf(c.stdout, "%-24s %s\n", entry.Phrase, entry.Desc)
	}
	return exitOK
}

func (c *cli) showConfig() int {
	var issues []string
	for _, err := range provider.NewRegistry().Validate(c.cfg) {
		issues = append(issues, err.Error())
	}
	c.print(response{
		Message:    "effective settings",
		Results:    c.cfg.Summary(),
		Issues:     issues,
		ConfigPath: c.cfgPath,
	})
	return exitOK
}

func (c *cli) setupKey() int {
	msgs := c.catalog.Messages
	key := ""
	used := false
	if c.interactive {
		var err error
		key, used, err = ui.PromptAPIKey(ui.NormalizeBackend(c.cfg.UI.Backend), msgs.KeyPrompt)
		if err != nil {
			c.logger.Warn("key prompt failed", zap.Error(err))
		}
	}
	if !used {
		fmt.Fprintf(c.stderr, "%s: ", msgs.KeyPrompt)
		line, _ := bufio.NewReader(c.stdin).ReadString('\n')
		key = strings.TrimSpace(line)
	}
	if key == "" {
		fmt.Fprintln(c.stderr, "coreshell: no key entered, nothing changed")
		return exitOK
	}

	if err := c.cfg.Set("providers.gemini.api_key", key); err != nil {
		fmt.Fprintf(c.stderr, "coreshell: %v\n", err)
		return exitFailure
	}
	if err := config.Save(c.cfgPath, c.cfg); err != nil {
		fmt.Fprintf(c.stderr, "coreshell: could not save config: %v\n", err)
		return exitFailure
	}
	c.print(response{Message: fmt.Sprintf(msgs.KeySaved, c.cfgPath)})
	return exitOK
}

func (c *cli) runTUI() int {
	r, err := c.newResolver()
	if err != nil {
		fmt.Fprintf(c.stderr, "coreshell: could not load knowledge base: %v\n", err)
		return exitFailure
	}
	store, closeFn, err := c.openStore()
	if err != nil {
		fmt.Fprintf(c.stderr, "coreshell: %v\n", err)
		return exitFailure
	}
	defer closeFn()

	err = ui.RunApp(ui.AppOptions{
		Resolver:  r,
		Favorites: store,
		Catalog:   c.catalog,
		Copy:      c.copy,
		Logger:    c.logger,
	})
	if err != nil {
		fmt.Fprintf(c.stderr, "coreshell: %v\n", err)
		return exitFailure
	}
	return exitOK
}

func (c *cli) printRecord(record command.Record, origin command.Origin) {
	msgs := c.catalog.Messages
	caption := msgs.FoundLocally
	if origin == command.OriginAI {
		caption = msgs.GeneratedByAI
	}
	fmt.Fprintf(c.stdout, "%s\n", caption)
	fmt.Fprintf(c.stdout, "%s\n\n", record.Desc)
	fmt.Fprintf(c.stdout, "%s:\n  %s\n", msgs.MacHeader, record.Mac)
	fmt.Fprintf(c.stdout, "%s:\n  %s\n", msgs.WinHeader, record.Win)
}

func (c *cli) print(payload response) {
	printResponse(c.stdout, payload, c.opts.JSON)
}

func printResponse(w io.Writer, payload response, asJSON bool) {
	if asJSON {
		encoded, _ := json.MarshalIndent(payload, "", "  ")
		fmt.Fprintln(w, string(encoded))
		return
	}
	if payload.Message != "" {
		fmt.Fprintln(w, payload.Message)
	}
	if payload.Results != nil {
		encoded, _ := json.MarshalIndent(payload.Results, "", "  ")
		fmt.Fprintln(w, string(encoded))
	}
	for _, issue := range payload.Issues {
		fmt.Fprintf(w, "- %s\n", issue)
	}
	if payload.ConfigPath != "" {
		fmt.Fprintf(w, "config: %s\n", payload.ConfigPath)
	}
}

// withLoader shows a spinner on stderr while run blocks, but only for a
// human at a terminal.
func (c *cli) withLoader(run func()) {
	if c.opts.JSON || c.opts.Quiet || !isTerminal(os.Stderr) {
		run()
		return
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		renderLoader(os.Stderr, c.catalog, done)
	}()

	run()
	close(done)
	wg.Wait()
}

func renderLoader(w io.Writer, catalog i18n.Catalog, done <-chan struct{}) {
	// local hits return before the loader would ever show
	delay := time.NewTimer(180 * time.Millisecond)
	defer delay.Stop()
	select {
	case <-done:
		return
	case <-delay.C:
	}

	frames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	ticker := time.NewTicker(120 * time.Millisecond)
	defer ticker.Stop()

	for tick := 0; ; tick++ {
		fmt.Fprintf(w, "\r%s %s\x1b[K", frames[tick%len(frames)], catalog.Thinking(tick/len(frames)))
		select {
		case <-done:
			fmt.Fprint(w, "\r\x1b[K")
			return
		case <-ticker.C:
		}
	}
}

func commandForOS(record command.Record) string {
	if goruntime.GOOS == "windows" {
		return record.Win
	}
	return record.Mac
}

func canUseInteractiveUI(opts options, backend string, stdin io.Reader, stdout io.Writer) bool {
	if opts.JSON || opts.Quiet {
		return false
	}
	if strings.TrimSpace(opts.UI) != "" {
		backend = opts.UI
	}
	if !ui.IsInteractiveBackend(backend) {
		return false
	}
	in, ok := stdin.(*os.File)
	if !ok {
		return false
	}
	out, ok := stdout.(*os.File)
	if !ok {
		return false
	}
	return isTerminal(in) && isTerminal(out)
}

func isTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
