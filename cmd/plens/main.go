// Command plens is a dev CLI for postlens maintenance and debugging tasks.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/chromedp/chromedp"
	"github.com/joho/godotenv"
	"github.com/pkg/browser"

	"github.com/mkondo/postlens/internal/app"
	"github.com/mkondo/postlens/internal/auth"
	browseropts "github.com/mkondo/postlens/internal/browser"
	"github.com/mkondo/postlens/internal/config"
	"github.com/mkondo/postlens/internal/logging"
	"github.com/mkondo/postlens/internal/store"
)

func main() {
	_ = godotenv.Load()
	logging.InitFromEnv()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "analyze":
		if len(os.Args) < 3 {
			fmt.Println("Usage: plens analyze <post-url>")
			os.Exit(1)
		}
		runAnalyze(os.Args[2])
	case "login":
		runLogin()
	case "import-cookies":
		if len(os.Args) < 3 {
			fmt.Println("Usage: plens import-cookies <export.json>")
			os.Exit(1)
		}
		runImportCookies(os.Args[2])
	case "reset":
		runReset()
	case "open":
		if len(os.Args) < 3 {
			fmt.Println("Usage: plens open <config|data|dashboard>")
			os.Exit(1)
		}
		runOpen(os.Args[2])
	case "bot-test":
		runBotTest()
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: plens <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  analyze <url>          Analyze one post synchronously")
	fmt.Println("  login                  Open a browser to capture X.com session cookies")
	fmt.Println("  import-cookies <file>  Import cookies from a browser-extension JSON export")
	fmt.Println("  reset                  Wipe the record store and downloaded images")
	fmt.Println("  open config            Open config file in default editor")
	fmt.Println("  open data              Open data directory in file explorer")
	fmt.Println("  open dashboard         Open the running server's dashboard")
	fmt.Println("  bot-test               Open bot.sannysoft.com to audit browser fingerprint")
}

func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		cfg = config.Default()
	}
	cfg.ApplyEnv()
	if err := cfg.ResolvePaths(); err != nil {
		log.Fatalf("Failed to resolve data paths: %v", err)
	}
	return cfg
}

func runAnalyze(url string) {
	a, err := app.New(loadConfig())
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}

	outcome, err := a.Pipeline.Analyze(context.Background(), url)
	if err != nil {
		log.Fatalf("Analysis failed (%s): %v", outcome, err)
	}
	fmt.Printf("Outcome: %s\n", outcome)
}

func runLogin() {
	path, err := auth.DefaultCookieStorePath()
	if err != nil {
		log.Fatalf("Failed to get cookie store path: %v", err)
	}
	manager := auth.NewManager(auth.NewCookieStore(path))

	fmt.Println("A browser window will open. Log in to X.com; cookies are captured automatically.")
	if err := manager.Login(context.Background()); err != nil {
		log.Fatalf("Login failed: %v", err)
	}
	fmt.Println("Login successful, cookies saved.")
}

func runImportCookies(file string) {
	path, err := auth.DefaultCookieStorePath()
	if err != nil {
		log.Fatalf("Failed to get cookie store path: %v", err)
	}
	cs := auth.NewCookieStore(path)

	if err := cs.ImportFromFile(file); err != nil {
		log.Fatalf("Import failed: %v", err)
	}
	if !cs.IsValid() {
		log.Println("Warning: imported cookies are missing auth_token or ct0; fetches may be anonymous")
	}
	fmt.Println("Cookies imported.")
}

func runReset() {
	cfg := loadConfig()

	if err := store.New(cfg.Server.StorePath).Reset(); err != nil {
		log.Fatalf("Reset failed: %v", err)
	}
	if err := os.RemoveAll(cfg.Server.ImageDir); err != nil {
		log.Printf("Warning: could not remove image dir: %v", err)
	}
	fmt.Println("Store and images wiped.")
}

func runOpen(target string) {
	switch target {
	case "config":
		path, err := config.ConfigPath()
		if err != nil {
			log.Fatalf("Failed to get path: %v", err)
		}
		if err := browser.OpenFile(path); err != nil {
			log.Fatalf("Failed to open: %v", err)
		}
	case "data":
		path, err := config.DataDir()
		if err != nil {
			log.Fatalf("Failed to get path: %v", err)
		}
		if err := browser.OpenFile(path); err != nil {
			log.Fatalf("Failed to open: %v", err)
		}
	case "dashboard":
		cfg := loadConfig()
		addr := cfg.Server.ListenAddr
		if addr[0] == ':' {
			addr = "localhost" + addr
		}
		if err := browser.OpenURL("http://" + addr + "/api/v1/stats"); err != nil {
			log.Fatalf("Failed to open: %v", err)
		}
	default:
		fmt.Printf("Unknown target: %s\n", target)
		os.Exit(1)
	}
}

func runBotTest() {
	log.Println("Opening bot.sannysoft.com with stealth browser options...")

	opts := browseropts.Options(false) // non-headless so you can see it

	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	defer cancel()

	ctx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	go func() {
		err := chromedp.Run(ctx,
			chromedp.Navigate("https://bot.sannysoft.com"),
		)
		if err != nil {
			log.Printf("Failed to navigate: %v", err)
		}
	}()

	fmt.Println("Press Enter to end program...")
	fmt.Scanln()

	log.Println("Done.")
}
