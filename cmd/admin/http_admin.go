package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// liveCmd queries a running bot's observer listener.
func liveCmd(args []string) {
	fs := flag.NewFlagSet("live", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8081", "observer base url")
	latest := fs.Bool("latest", false, "print the latest turn frame instead of health")
	_ = fs.Parse(args)

	path := "/healthz"
	if *latest {
		path = "/v1/turn/latest"
	}
	u := strings.TrimRight(strings.TrimSpace(*baseURL), "/") + path
	cl := &http.Client{Timeout: 5 * time.Second}
	resp, err := cl.Get(u)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	fmt.Println(string(b))
	if resp.StatusCode/100 != 2 {
		os.Exit(1)
	}
}
