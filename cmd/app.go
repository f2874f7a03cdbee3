package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/nrenier/ICorNet-sub000/model"
	"github.com/nrenier/ICorNet-sub000/service"
)

var errNotLoggedIn = errors.New("not logged in, run `icornet login` first")

// app holds the components one command invocation works with.
type app struct {
	client  *service.APIClient
	session *service.SessionContext
	notify  *consoleNotify
	scope   *service.Scope
	out     io.Writer

	cache       *service.BadgerCache
	sessionFile string
}

// newApp builds the API client and restores the saved session. With
// requireUser the session user is fetched and a missing session is an error.
func newApp(cmd *cobra.Command, requireUser bool) (*app, error) {
	client, err := service.NewAPIClient(&cfg.API)
	if err != nil {
		return nil, err
	}

	sessionFile, err := sessionPath()
	if err != nil {
		return nil, err
	}
	if err := client.LoadCookies(sessionFile); err != nil {
		return nil, err
	}

	ctx := cmd.Context()
	a := &app{
		client:      client,
		session:     service.NewSessionContext(nil),
		notify:      newConsoleNotify(cmd.ErrOrStderr(), cfg.Notify.DismissAfter()),
		scope:       service.NewScope(ctx),
		out:         cmd.OutOrStdout(),
		sessionFile: sessionFile,
	}

	if requireUser {
		user, err := client.CurrentUser(ctx)
		if errors.Is(err, service.ErrNotAuthenticated) {
			a.close()
			return nil, errNotLoggedIn
		}
		if err != nil {
			a.close()
			return nil, err
		}
		a.session.SetUser(user)
	}
	return a, nil
}

func (a *app) close() {
	a.scope.Close()
	a.notify.Close()
	if a.cache != nil {
		_ = a.cache.Close()
	}
}

// entityCache opens the on-disk entity cache, falling back to memory.
func (a *app) entityCache() service.Cache {
	if a.cache != nil {
		return a.cache
	}
	dir := cfg.Cache.Dir
	if dir == "" {
		if base, err := os.UserCacheDir(); err == nil {
			dir = filepath.Join(base, "icornet", "entities")
		}
	}
	c, err := service.NewBadgerCache(dir)
	if err != nil && dir != "" {
		c, err = service.NewBadgerCache("")
	}
	if err != nil {
		return nil
	}
	a.cache = c
	return c
}

func (a *app) reportManager(domain service.ReportDomain) *service.ReportManager {
	return service.NewReportManager(domain, a.client, a.session, a.notify, a.scope, cfg.Reports.ReloadDelay())
}

func (a *app) chatSession(domain service.ChatDomain) *service.ChatSession {
	return service.NewChatSession(domain, a.client, a.session, a.notify, a.scope, service.ChatOptions{
		ReloadDelay: cfg.Chat.ReloadDelay(),
		Region:      cfg.Chat.Region,
		Province:    cfg.Chat.Province,
	})
}

func sessionPath() (string, error) {
	if cfg.Session.File != "" {
		return cfg.Session.File, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config dir: %w", err)
	}
	return filepath.Join(dir, "icornet", "session.json"), nil
}

// consoleNotify prints every notification to w as it is pushed.
type consoleNotify struct {
	*service.Notifier
	w io.Writer
}

func newConsoleNotify(w io.Writer, ttl time.Duration) *consoleNotify {
	return &consoleNotify{Notifier: service.NewNotifier(ttl), w: w}
}

func (n *consoleNotify) Push(kind service.NotificationKind, message string) string {
	prefix := map[service.NotificationKind]string{
		service.NotifySuccess: "ok",
		service.NotifyError:   "error",
		service.NotifyInfo:    "info",
	}[kind]
	fmt.Fprintf(n.w, "[%s] %s\n", prefix, message)
	return n.Notifier.Push(kind, message)
}

// readPassword prompts on out and reads a password from in. A terminal is
// read without echo; anything else is read up to the end of the line.
func readPassword(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, "Password: ")
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// confirm asks a yes/no question on in.
func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N] ", question)
	line, _ := bufio.NewReader(in).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes", "s", "si", "sì":
		return true
	}
	return false
}

func userLabel(u *model.User) string {
	if u == nil {
		return service.AnonymousUser
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return fmt.Sprintf("%s (%s)", u.Username, name)
}
