package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type target struct {
	Method   string `json:"method"`
	Path     string `json:"path"`
	Status   int    `json:"status"`
	Critical bool   `json:"critical"`
}

type config struct {
	Targets []target `json:"targets"`
}

type result struct {
	Target   target
	Status   int
	Match    bool
	Error    error
	Duration time.Duration
}

func main() {
	var (
		baseURL     string
		targetsPath string
		token       string
		timeout     time.Duration
	)

	flag.StringVar(&baseURL, "base", "http://localhost:8080", "API base URL")
	flag.StringVar(&targetsPath, "targets", filepath.Join("scripts", "smoke", "targets.json"), "Path to JSON targets file")
	flag.StringVar(&token, "token", "", "Bearer token for authenticated targets")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	targets, err := loadTargets(targetsPath)
	if err != nil {
		log.Fatalf("failed to load targets: %v", err)
	}

	client := &http.Client{Timeout: timeout}
	var (
		results  []result
		breaking int
		optional int
	)

	for _, t := range targets {
		res := checkTarget(client, baseURL, token, t)
		if res.Error != nil || !res.Match {
			if t.Critical {
				breaking++
			} else {
				optional++
			}
		}
		results = append(results, res)
	}

	printReport(results)

	fmt.Printf("Critical failures: %d, Optional failures: %d\n", breaking, optional)
	if breaking > 0 {
		os.Exit(1)
	}
}

func loadTargets(path string) ([]target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Targets) == 0 {
		return nil, fmt.Errorf("no targets defined in %s", path)
	}
	return cfg.Targets, nil
}

func checkTarget(client *http.Client, base, token string, tgt target) result {
	res := result{Target: tgt}

	method := strings.ToUpper(strings.TrimSpace(tgt.Method))
	if method == "" {
		method = http.MethodGet
	}
	path := tgt.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	url := strings.TrimRight(base, "/") + path

	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		res.Error = err
		return res
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := client.Do(req)
	res.Duration = time.Since(start)
	if err != nil {
		res.Error = fmt.Errorf("request failed: %w", err)
		return res
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	res.Status = resp.StatusCode
	expected := tgt.Status
	if expected == 0 {
		expected = http.StatusOK
	}
	res.Match = res.Status == expected

	return res
}

func printReport(results []result) {
	fmt.Println("Smoke Check Report")
	fmt.Println("==================")
	for _, res := range results {
		status := "OK"
		if res.Error != nil {
			status = "ERROR"
		} else if !res.Match {
			status = "FAIL"
		}
		fmt.Printf("[%s] %s %s\n", status, res.Target.Method, res.Target.Path)
		if res.Error != nil {
			fmt.Printf("  Error: %v\n", res.Error)
			continue
		}
		fmt.Printf("  Status: %d (%s) | Critical: %t\n", res.Status, res.Duration, res.Target.Critical)
	}
}
