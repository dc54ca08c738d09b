package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/procsense/procsense/internal/config"
	"github.com/procsense/procsense/internal/daemon"
	"github.com/procsense/procsense/internal/database"
	"github.com/procsense/procsense/internal/reporter"
	"github.com/procsense/procsense/internal/tracker"
	"github.com/procsense/procsense/internal/web"
	"github.com/procsense/procsense/pkg/process"
	"github.com/procsense/procsense/pkg/sensing"
	"github.com/procsense/procsense/pkg/window"
)

var (
	version = "0.1.0"
	commit  = "unknown"
	date    = "unknown"
)

const appName = "procsense"

func main() {
	configPath, args := splitConfigFlag(os.Args[1:])
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	command, rest := args[0], args[1:]

	switch command {
	case "snapshot":
		showSnapshot(rest)
	case "resolve":
		resolveProcess(rest)
	case "active":
		showActive(rest)
	case "watch":
		runTracker(loadConfig(configPath), false, 0)
	case "serve":
		runTracker(loadConfig(configPath), true, portFlag(rest))
	case "stop":
		stopDaemon(loadConfig(configPath))
	case "status":
		showStatus(loadConfig(configPath))
	case "report":
		generateReport(loadConfig(configPath), rest)
	case "clear":
		clearDatabase(loadConfig(configPath))
	case "config":
		showConfig(loadConfig(configPath), rest)
	case "version":
		fmt.Printf("%s version %s\n", appName, version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`procsense - Process and foreground window sensing

Usage:
  procsense [--config file] <command> [options]

Commands:
  snapshot [--json]          List every running process
  resolve <pid> [--json]     Show metadata for one process
  active [--json]            Show the foreground window and its process
  watch                      Track foreground time in the foreground
  serve [--port N]           Track foreground time and serve the web API
  stop                       Stop a running tracker
  status                     Show tracker status and the current window
  report [period] [--json]   Time report (period: day, week, month)
  clear                      Delete all tracking data
  config [--write file]      Print the effective configuration, or save it as TOML
  version                    Show version information
  help                       Show this help message

Environment Variables:
  PROCSENSE_CONFIG             TOML config file path
  PROCSENSE_DB_PATH            Database file path
  PROCSENSE_RETENTION_DAYS     Delete samples older than this many days
  PROCSENSE_SNAPSHOT_INTERVAL  Process snapshot interval in seconds (1-300)
  PROCSENSE_WINDOW_INTERVAL    Window sample interval in milliseconds (100-60000)
  PROCSENSE_FLUSH_INTERVAL     Database flush interval in seconds
  PROCSENSE_CACHE_TTL          Web snapshot cache TTL in milliseconds
  PROCSENSE_PID_FILE           PID file path
  PROCSENSE_TIMEZONE           Report time zone (IANA name or Local)
  PROCSENSE_WEB_HOST           Web API host
  PROCSENSE_WEB_PORT           Web API port

Version: %s
`, version)
}

// splitConfigFlag removes a "--config path" or "--config=path" pair from
// args wherever it appears.
func splitConfigFlag(args []string) (string, []string) {
	var path string
	rest := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		switch a := args[i]; {
		case a == "--config" || a == "-c":
			if i+1 < len(args) {
				path = args[i+1]
				i++
			}
		case len(a) > len("--config=") && a[:len("--config=")] == "--config=":
			path = a[len("--config="):]
		default:
			rest = append(rest, a)
		}
	}
	return path, rest
}

func hasFlag(args []string, name string) bool {
	for _, a := range args {
		if a == name {
			return true
		}
	}
	return false
}

func portFlag(args []string) int {
	for i, a := range args {
		if a == "--port" && i+1 < len(args) {
			port, err := strconv.Atoi(args[i+1])
			if err != nil || port < 1 || port > 65535 {
				log.Fatalf("Invalid port: %s", args[i+1])
			}
			return port
		}
	}
	return 0
}

// parsePID reads the first non-flag argument as a pid.
func parsePID(args []string) (uint32, error) {
	for _, a := range args {
		if len(a) > 0 && a[0] == '-' {
			continue
		}
		pid, err := strconv.ParseUint(a, 10, 32)
		if err != nil || pid == 0 {
			return 0, fmt.Errorf("invalid pid %q", a)
		}
		return uint32(pid), nil
	}
	return 0, errors.New("missing pid")
}

func loadConfig(path string) *config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	return cfg
}

func openSensing() *sensing.Sensor {
	sens, err := sensing.NewDefault()
	if err != nil {
		log.Fatalf("Failed to initialize process sensing: %v", err)
	}
	return sens
}

func printJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("Failed to format JSON: %v", err)
	}
	fmt.Println(string(data))
}

func showSnapshot(args []string) {
	sens := openSensing()
	defer sens.Close()

	snap := sens.CaptureSnapshot()
	defer sens.ReleaseSnapshot(snap)

	if hasFlag(args, "--json") {
		printJSON(snap.Records())
		return
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PID\tPPID\tSTARTED\tNAME\tPATH")
	for _, rec := range snap.Records() {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\n", rec.PID, rec.ParentPID, startedAt(rec), rec.Name, rec.ExePath)
	}
	tw.Flush()
	fmt.Printf("\n%d processes\n", snap.Len())
}

// startedAt renders the start time for display. Windows start times count
// from 1601, so very large values are shown raw.
func startedAt(rec process.Record) string {
	if rec.StartTimeNanos == 0 {
		return "-"
	}
	if rec.StartTimeNanos > uint64(1<<63-1) {
		return strconv.FormatUint(rec.StartTimeNanos, 10)
	}
	return time.Unix(0, int64(rec.StartTimeNanos)).Format("2006-01-02 15:04:05")
}

func resolveProcess(args []string) {
	pid, err := parsePID(args)
	if err != nil {
		fmt.Printf("Usage: %s resolve <pid> [--json]: %v\n", appName, err)
		os.Exit(1)
	}

	sens := openSensing()
	defer sens.Close()

	rec := sens.ResolveProcess(pid)

	if hasFlag(args, "--json") {
		printJSON(rec)
		return
	}

	fmt.Printf("PID:        %d\n", rec.PID)
	fmt.Printf("Identity:   %s\n", rec.UniqueKey())
	fmt.Printf("Name:       %s\n", rec.Name)
	fmt.Printf("Path:       %s\n", rec.ExePath)
	fmt.Printf("Started:    %s\n", startedAt(rec))
	if rec.Partial() {
		fmt.Println("(process not found or access denied)")
	}
}

func showActive(args []string) {
	sens := openSensing()
	defer sens.Close()

	sample, err := sens.CaptureActiveWindow()
	if err != nil {
		if errors.Is(err, window.ErrNoActiveWindow) {
			fmt.Println("No active window")
			return
		}
		fmt.Println(sens.Status())
		log.Fatalf("Failed to capture active window: %v", err)
	}
	rec := sens.ResolveProcess(sample.PID)

	if hasFlag(args, "--json") {
		printJSON(map[string]interface{}{"window": sample, "process": rec})
		return
	}

	printWindow(sample, rec)
}

func printWindow(sample window.Sample, rec process.Record) {
	fmt.Printf("Current Window:\n")
	fmt.Printf("  Title:   %s\n", sample.Title)
	fmt.Printf("  Process: %s (PID %d)\n", rec.Name, sample.PID)
	fmt.Printf("  Path:    %s\n", rec.ExePath)
	fmt.Printf("  Display: %s\n", sample.DisplayServer)
}

// runTracker runs the tracker until SIGINT or SIGTERM, optionally serving
// the web API alongside it.
func runTracker(cfg *config.Config, withWeb bool, port int) {
	sens := openSensing()
	defer sens.Close()

	dm := daemon.New(cfg.Daemon.PIDFile, sens.Source())
	running, id, err := dm.IsRunning()
	if err != nil {
		log.Fatalf("Failed to check daemon status: %v", err)
	}
	if running {
		log.Fatalf("Tracker is already running (PID: %d)", id.PID)
	}

	db, err := database.Connect(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Initialize(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	if err := dm.WritePID(); err != nil {
		log.Fatalf("Failed to write PID file: %v", err)
	}
	defer dm.RemovePID()

	log.Print(sens.Status())

	repo := database.NewRepository(db)
	trackerSvc := tracker.NewService(cfg, repo, sens.Source(), sens)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var webServer *web.Server
	if withWeb {
		webServer = web.NewServer(cfg, web.NewHandler(cfg, repo, sens, trackerSvc), port)
		go func() {
			if err := webServer.Start(); err != nil && err != http.ErrServerClosed {
				log.Printf("Web server error: %v", err)
				cancel()
			}
		}()
		log.Printf("Web API available at: http://%s", webServer.GetAddress())
	}

	done := make(chan error, 1)
	go func() { done <- trackerSvc.Start(ctx) }()

	log.Printf("Configuration:\n%s", cfg.String())

	select {
	case <-sigChan:
		log.Println("Received shutdown signal")
		cancel()
		trackerSvc.Stop()
		err = <-done
	case err = <-done:
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("Tracker error: %v", err)
	}

	if webServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := webServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error shutting down web server: %v", err)
		}
	}

	stats := trackerSvc.Stats()
	log.Printf("Tracker stopped: %d snapshots, %d window samples, %d flushes, %d pruned, %d errors",
		stats.Snapshots, stats.WindowSamples, stats.Flushes, stats.Pruned, stats.Errors)
}

func stopDaemon(cfg *config.Config) {
	sens := openSensing()
	defer sens.Close()

	dm := daemon.New(cfg.Daemon.PIDFile, sens.Source())
	running, id, err := dm.IsRunning()
	if err != nil {
		log.Fatalf("Failed to check daemon status: %v", err)
	}

	if !running {
		fmt.Println("Tracker is not running")
		return
	}

	fmt.Printf("Stopping tracker (PID: %d)...\n", id.PID)
	if err := dm.Stop(); err != nil {
		log.Fatalf("Failed to stop tracker: %v", err)
	}

	fmt.Println("Tracker stopped successfully")
}

func showStatus(cfg *config.Config) {
	sens := openSensing()
	defer sens.Close()

	dm := daemon.New(cfg.Daemon.PIDFile, sens.Source())
	running, id, err := dm.IsRunning()
	if err != nil {
		log.Fatalf("Failed to check daemon status: %v", err)
	}

	if !running {
		fmt.Println("Status: Not running")
	} else {
		fmt.Printf("Status: Running (PID: %d, identity %s)\n", id.PID, id)
		fmt.Printf("Snapshot Interval: %v\n", cfg.Tracker.SnapshotInterval)
		fmt.Printf("Window Interval: %v\n", cfg.Tracker.WindowInterval)
		fmt.Printf("Database: %s\n", cfg.Database.Path)
	}

	fmt.Println()
	fmt.Println(sens.Status())

	sample, err := sens.CaptureActiveWindow()
	if err != nil {
		fmt.Printf("\nCould not detect current window: %v\n", err)
		return
	}
	fmt.Println()
	printWindow(sample, sens.ResolveProcess(sample.PID))
}

func generateReport(cfg *config.Config, args []string) {
	periodType := "day"
	for _, a := range args {
		if a != "--json" {
			periodType = a
			break
		}
	}

	db, err := database.Connect(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Initialize(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	rep := reporter.New(cfg, database.NewRepository(db))

	report, err := rep.GenerateReport(periodType)
	if err != nil {
		log.Fatalf("Failed to generate report: %v", err)
	}

	if hasFlag(args, "--json") {
		jsonStr, err := rep.FormatReportJSON(report)
		if err != nil {
			log.Fatalf("Failed to format JSON: %v", err)
		}
		fmt.Println(jsonStr)
		return
	}
	fmt.Println(rep.FormatReportText(report))
}

// writeConfig saves cfg to the path following --write and returns it. It
// returns "" when the flag is absent.
func writeConfig(cfg *config.Config, args []string) (string, error) {
	for i, a := range args {
		if a != "--write" {
			continue
		}
		if i+1 >= len(args) {
			return "", errors.New("--write needs a file path")
		}
		path := args[i+1]
		if err := config.Save(cfg, path); err != nil {
			return "", err
		}
		return path, nil
	}
	return "", nil
}

func showConfig(cfg *config.Config, args []string) {
	path, err := writeConfig(cfg, args)
	if err != nil {
		log.Fatalf("Failed to write configuration: %v", err)
	}
	if path != "" {
		fmt.Printf("Configuration written to %s\n", path)
		return
	}
	fmt.Println(cfg.String())
}

func clearDatabase(cfg *config.Config) {
	fmt.Print("This will delete all tracking data. Are you sure? (yes/no): ")
	var response string
	fmt.Scanln(&response)

	if response != "yes" && response != "y" {
		fmt.Println("Operation cancelled")
		return
	}

	db, err := database.Connect(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Initialize(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	if err := database.NewRepository(db).Clear(); err != nil {
		log.Fatalf("Failed to clear database: %v", err)
	}

	fmt.Println("Database cleared successfully")
}
