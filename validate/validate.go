// Command validate provides a small CLI that validates Daifugo client
// configuration files (.json, .yaml, .yml). It checks:
//   - The file parses
//   - The backend is a host or a ws/wss/http/https URL without a path
//   - The selection policy and HTTP timeout are valid
//   - Plaintext backends on non-local hosts (warning only)
//
// Environment overrides are ignored so each file is judged on its own.
package main

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/wricardo/mcp-training/daifugo/game/config"
)

// ValidationResult captures the outcome of validating a single file.
// Info holds what the file resolves to; Warnings never make a file invalid.
type ValidationResult struct {
	File     string
	Valid    bool
	Errors   []string
	Warnings []string
	Info     []string
}

// validateConfig loads and validates a single configuration file
func validateConfig(filePath string) ValidationResult {
	result := ValidationResult{
		File:  filepath.Base(filePath),
		Valid: true,
	}

	cfg, err := config.ReadFile(filePath)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	ws, err := cfg.WebSocketURL("<room>", "<player>")
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
		return result
	}
	roomsURL, _ := cfg.RoomsURL()
	timeout, _ := cfg.Timeout()

	result.Info = append(result.Info,
		"game endpoint: "+ws,
		"rooms endpoint: "+roomsURL,
		fmt.Sprintf("selection policy: %s, http timeout: %s", cfg.Policy(), timeout),
	)

	if !cfg.Secure() && !isLocal(cfg.Backend) {
		result.Warnings = append(result.Warnings, fmt.Sprintf("backend %s is not local but uses plaintext ws/http", cfg.Backend))
	}
	return result
}

func isLocal(backend string) bool {
	host := backend
	if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// configFiles expands args into config files; directories contribute their
// .json, .yaml and .yml files
func configFiles(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		for _, pattern := range []string{"*.json", "*.yaml", "*.yml"} {
			matches, err := filepath.Glob(filepath.Join(arg, pattern))
			if err != nil {
				return nil, err
			}
			files = append(files, matches...)
		}
	}
	return files, nil
}

// main validates each file or directory given on the command line (default
// the current directory), printing a concise report and exiting with
// non-zero status if any are invalid.
func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		args = []string{"."}
	}

	files, err := configFiles(args)
	if err != nil {
		fmt.Printf("Error finding config files: %v\n", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Println("No config files found")
		return
	}

	allValid := true
	for _, file := range files {
		result := validateConfig(file)

		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Info {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				fmt.Println("  ❌ " + err)
			}
		}
		for _, w := range result.Warnings {
			fmt.Println("  ⚠️  " + w)
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All configurations are valid!")
	} else {
		fmt.Println("❌ Some configurations have errors")
		os.Exit(1)
	}
}
