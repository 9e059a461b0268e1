package main

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kalambet/shiftbrief/internal/cache"
	"github.com/kalambet/shiftbrief/internal/config"
)

// queryResponse is the subset of the /query result the CLI renders.
type queryResponse struct {
	Synthesis     string `json:"synthesis"`
	ErrorAnalysis *struct {
		UserMessage  string   `json:"user_message"`
		Alternatives []string `json:"alternative_approaches"`
	} `json:"error_analysis"`
	Partial *struct {
		Message string `json:"message"`
	} `json:"partial_results"`
}

// --- ask ---

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a manufacturing question",
	Long: `Ask a manufacturing question against the running server.

Examples:
  shiftbrief ask "how is production trending today?"
  shiftbrief ask "which machines had the most downtime this week?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		question := strings.Join(args, " ")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/query", map[string]string{"text": question})
		if err != nil {
			return err
		}

		var result queryResponse
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		switch {
		case result.Synthesis != "":
			fmt.Println(result.Synthesis)
		case result.Partial != nil:
			printWarning("%s", result.Partial.Message)
		case result.ErrorAnalysis != nil:
			printError("%s", result.ErrorAnalysis.UserMessage)
			for _, alt := range result.ErrorAnalysis.Alternatives {
				printStep("%s", alt)
			}
		default:
			printWarning("No analysis produced.")
		}
		return nil
	},
}

// --- briefing ---

var briefingCmd = &cobra.Command{
	Use:   "briefing",
	Short: "Show the daily production briefing",
	RunE: func(cmd *cobra.Command, args []string) error {
		date, _ := cmd.Flags().GetString("date")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		path := "/briefing"
		if date != "" {
			path += "?date=" + date
		}
		resp, err := client.get(cmd.Context(), path)
		if err != nil {
			return err
		}

		var briefing struct {
			Source string `json:"source"`
			Entry  *struct {
				AnalysisDate string                      `json:"analysis_date"`
				Analyses     map[string]briefingAnalysis `json:"analyses"`
			} `json:"entry"`
			Result *struct {
				Synthesis string `json:"synthesis"`
			} `json:"result"`
		}
		if err := decodeJSON(resp, &briefing); err != nil {
			return err
		}

		switch {
		case briefing.Entry != nil:
			printStep("Cached briefing for %s", briefing.Entry.AnalysisDate)
			for _, name := range sortedAnalysisNames(briefing.Entry.Analyses) {
				a := briefing.Entry.Analyses[name]
				fmt.Printf("\n%s\n", colorize(colorBold, name))
				if a.Error != "" {
					printError("%s", a.Error)
					continue
				}
				fmt.Println(a.Analysis)
			}
		case briefing.Result != nil && briefing.Result.Synthesis != "":
			fmt.Println(briefing.Result.Synthesis)
		default:
			printWarning("No briefing available.")
		}
		return nil
	},
}

// briefingAnalysis is one cached analysis as the CLI renders it.
type briefingAnalysis struct {
	Analysis string `json:"analysis"`
	Error    string `json:"error"`
}

// sortedAnalysisNames fixes the section order so repeated runs print the
// cached briefing the same way.
func sortedAnalysisNames(analyses map[string]briefingAnalysis) []string {
	names := make([]string, 0, len(analyses))
	for name := range analyses {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	briefingCmd.Flags().String("date", "", "briefing date (YYYY-MM-DD, default today)")
}

// --- status ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show shiftbrief system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get(serverURL + "/health")
	serverUp := false
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == 200 {
			serverUp = true
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	ollamaResp, err := client.Get(cfg.Ollama.BaseURL + "/api/version")
	if err != nil {
		printStatus("Ollama", "not running")
	} else {
		ollamaResp.Body.Close()
		printStatus("Ollama", "running at %s", cfg.Ollama.BaseURL)
	}
	printStatus("Analysis model", "%s", cfg.Ollama.Model)

	if serverUp {
		if apiclient, err := newAPIClient(); err == nil {
			if stResp, err := apiclient.get(context.Background(), "/status"); err == nil {
				var st struct {
					Session struct {
						QueryCount int `json:"query_count"`
					} `json:"session_context"`
					MeetingContext struct {
						Type  string `json:"meeting_type"`
						Phase string `json:"meeting_phase"`
					} `json:"meeting_context"`
				}
				if decodeJSON(stResp, &st) == nil {
					printStatus("Meeting", "%s (%s phase)", st.MeetingContext.Type, st.MeetingContext.Phase)
					printStatus("Queries", "%d this session", st.Session.QueryCount)
				}
			}
		}
	}

	printStatus("MES database", "%s", cfg.MES.DatabasePath)
	printStatus("Analysis cache", "%s", cfg.Cache.Dir)
	return nil
}

// --- cache ---

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the daily analysis cache",
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached daily analyses",
	RunE: func(cmd *cobra.Command, args []string) error {
		days, _ := cmd.Flags().GetInt("days")

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		cm, err := cache.NewManager(cfg.Cache.Dir, cfg.Cache.RetentionDays)
		if err != nil {
			return err
		}

		dates := cm.ListDates(days)
		if len(dates) == 0 {
			fmt.Println("No cached analyses found.")
			return nil
		}

		for _, d := range dates {
			line := fmt.Sprintf("%s  %d analyses", colorize(colorCyan, d.Date), d.Analyses)
			if d.Failed > 0 {
				line += colorize(colorYellow, fmt.Sprintf("  (%d failed)", d.Failed))
			}
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	cacheListCmd.Flags().Int("days", 7, "how many days back to list")
	cacheCmd.AddCommand(cacheListCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
