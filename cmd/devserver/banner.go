package main

import (
	"fmt"
	"io"
	"net"
	"path/filepath"

	"github.com/evangambit/Gamgee/internal/config"
)

// serveURL turns a listen address into something a browser can open.
func serveURL(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return "http://" + listen + "/"
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port) + "/"
}

func absOrSelf(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

func printBanner(w io.Writer, cfg *config.Config) {
	fmt.Fprintf(w, "\n  devserver %s\n\n", Version)
	fmt.Fprintf(w, "  Serving   %s\n", absOrSelf(cfg.Static.Root))
	fmt.Fprintf(w, "  Local     %s\n", serveURL(cfg.Server.Listen))
	if cfg.Watch.IsEnabled() {
		fmt.Fprintf(w, "  Watching  %s (%s)\n", absOrSelf(cfg.Watch.Dir), cfg.Watch.Mode)
	}
	if cfg.Reload.IsEnabled() {
		fmt.Fprintf(w, "  Reload    <script src=\"%s.js\"></script>\n", cfg.Reload.Path)
	}
	fmt.Fprintln(w)
}
