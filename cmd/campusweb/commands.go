package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"campusweb/internal/auth"
	"campusweb/internal/calendar"
	"campusweb/internal/capture"
	"campusweb/internal/export"
	appLog "campusweb/internal/log"
)

// runUpcoming prints the next events as an aligned table.
func runUpcoming(args []string) error {
	var flags flagConfig
	fs := flag.NewFlagSet("upcoming", flag.ContinueOnError)
	addCommonFlags(fs, &flags)
	limit := fs.Int("limit", calendar.DefaultUpcomingLimit, "Number of events to print")
	if err := fs.Parse(args); err != nil {
		return err
	}

	conf, err := loadConfig(flags)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cal, _, err := newCalendar(ctx, conf)
	if err != nil {
		return err
	}
	if !cal.Available() {
		return errors.New("calendar data unavailable")
	}
	if cal.Stale() {
		fmt.Fprintf(os.Stderr, "warning: calendar last updated %s\n", cal.Table().LastUpdated)
	}
	return export.WriteEventTable(os.Stdout, cal.UpcomingEvents(*limit))
}

// runRenderPDF prints the /calendar/print page of a running server with
// headless Chromium.
func runRenderPDF(args []string) error {
	var flags flagConfig
	fs := flag.NewFlagSet("render-pdf", flag.ContinueOnError)
	addCommonFlags(fs, &flags)
	url := fs.String("url", "", "Page to render (default <site.base_url>/calendar/print)")
	out := fs.String("out", "", "Output file, .pdf or .png (default: the calendar document under <documents_dir>)")
	landscape := fs.Bool("landscape", false, "Landscape orientation")
	timeout := fs.Duration("timeout", capture.DefaultTimeout, "Render timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	conf, err := loadConfig(flags)
	if err != nil {
		return err
	}

	opts := capture.Options{
		URL:        *url,
		OutputPath: *out,
		Landscape:  *landscape,
		Timeout:    *timeout,
	}
	if opts.URL == "" {
		opts.URL = conf.Site.BaseURL + "/calendar/print"
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if opts.OutputPath == "" {
		cal, _, err := newCalendar(ctx, conf)
		if err != nil {
			return err
		}
		opts.OutputPath = defaultDocumentPath(conf.DocumentsDir, cal.Table())
	}

	started := time.Now()
	if err := capture.Render(ctx, opts); err != nil {
		return err
	}
	appLog.Info("calendar document rendered",
		"url", opts.URL,
		"output", opts.OutputPath,
		"duration", time.Since(started).String(),
	)
	return nil
}

// defaultDocumentPath is where render-pdf writes when -out is not given:
// the file the document descriptor links under /documents/, or the table's
// export name.
func defaultDocumentPath(dir string, t *calendar.Table) string {
	if t == nil {
		return filepath.Join(dir, "academic-calendar.pdf")
	}
	if rest, ok := strings.CutPrefix(t.Document.URL, "/documents/"); ok && rest != "" && !strings.Contains(rest, "..") {
		return filepath.Join(dir, filepath.FromSlash(rest))
	}
	return filepath.Join(dir, t.ExportName("pdf"))
}

// runHashPassword reads a password (without echo on a terminal) and
// prints its Argon2id hash for admin.password_hash.
func runHashPassword(args []string) error {
	fs := flag.NewFlagSet("hash-password", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	password, err := readPassword()
	if err != nil {
		return err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	fmt.Println(hash)
	return nil
}

func readPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("read password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(os.Stderr, "Password: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	fmt.Fprint(os.Stderr, "Confirm: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}

	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	if len(first) == 0 {
		return "", errors.New("empty password")
	}
	return string(first), nil
}
