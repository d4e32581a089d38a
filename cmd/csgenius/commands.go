package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/csgenius/csgenius/internal/knowledge"
)

// --- search ---

var searchCmd = &cobra.Command{
	Use:   "search <term>",
	Short: "Search the knowledge base",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		term := strings.Join(args, " ")
		app, _ := cmd.Flags().GetString("app")
		category, _ := cmd.Flags().GetString("category")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		q := url.Values{}
		q.Set("search", term)
		if app != "" {
			q.Set("app", app)
		}
		if category != "" {
			q.Set("category", category)
		}

		resp, err := client.get(cmd.Context(), "/knowledge?"+q.Encode())
		if err != nil {
			return err
		}

		var result struct {
			Items []knowledge.Item `json:"items"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if len(result.Items) == 0 {
			fmt.Println("No results found.")
			return nil
		}

		for _, it := range result.Items {
			fmt.Printf("\n%s  %s / %s / %s\n",
				colorize(colorBold, it.Question),
				it.App, it.Category, it.LastUpdated,
			)
			answer := it.Answer
			if it.OptimizedAnswer != "" {
				answer = it.OptimizedAnswer
			}
			if len(answer) > 500 {
				answer = answer[:500] + "..."
			}
			fmt.Printf("  %s\n", answer)
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().String("app", "", "restrict to one product tag")
	searchCmd.Flags().String("category", "", "restrict to one category")
}

// --- add ---

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a Q&A entry to the knowledge base",
	RunE: func(cmd *cobra.Command, args []string) error {
		question, _ := cmd.Flags().GetString("question")
		answer, _ := cmd.Flags().GetString("answer")
		app, _ := cmd.Flags().GetString("app")
		category, _ := cmd.Flags().GetString("category")

		if question == "" || answer == "" {
			return fmt.Errorf("both --question and --answer are required")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		req := map[string]any{
			"items": []map[string]string{{
				"question": question,
				"answer":   answer,
				"app":      app,
				"category": category,
			}},
		}
		resp, err := client.post(cmd.Context(), "/knowledge", req)
		if err != nil {
			return err
		}

		var result struct {
			Items []knowledge.Item `json:"items"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}
		if len(result.Items) == 0 {
			return fmt.Errorf("server created no items")
		}

		printSuccess("Added entry %s", result.Items[0].ID)
		return nil
	},
}

func init() {
	addCmd.Flags().String("question", "", "canonical question text")
	addCmd.Flags().String("answer", "", "support reply text")
	addCmd.Flags().String("app", "", "product tag")
	addCmd.Flags().String("category", "", "classification label")
}

// --- stats ---

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show knowledge base statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/knowledge/stats")
		if err != nil {
			return err
		}
		var stats knowledge.Statistics
		if err := decodeJSON(resp, &stats); err != nil {
			return err
		}

		printStatus("Total entries", "%d", stats.Total)
		printStatus("Products", "%d", stats.Apps)
		printStatus("Categories", "%d", stats.Categories)
		printStatus("Added this week", "%d", stats.AddedThisWeek)

		distResp, err := client.get(cmd.Context(), "/knowledge/distribution")
		if err != nil {
			return err
		}
		var dist struct {
			Apps []knowledge.GroupCount `json:"apps"`
		}
		if err := decodeJSON(distResp, &dist); err != nil {
			return err
		}
		for _, g := range dist.Apps {
			fmt.Printf("  %s %d\n", colorize(colorCyan, g.Name+":"), g.Count)
		}
		return nil
	},
}

// --- draft ---

var draftCmd = &cobra.Command{
	Use:   "draft <keywords>",
	Short: "Draft a customer-service reply from keywords",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		keywords := strings.Join(args, " ")
		tone, _ := cmd.Flags().GetString("tone")
		rules, _ := cmd.Flags().GetStringArray("rule")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		req := map[string]any{"keywords": keywords}
		if tone != "" {
			req["tone"] = tone
		}
		if len(rules) > 0 {
			req["rules"] = rules
		}

		resp, err := client.post(cmd.Context(), "/draft", req)
		if err != nil {
			return err
		}

		var result struct {
			Reply string `json:"reply"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		fmt.Println(result.Reply)
		return nil
	},
}

func init() {
	draftCmd.Flags().String("tone", "", "reply tone")
	draftCmd.Flags().StringArray("rule", nil, "business rule the reply must honor (repeatable)")
}

// --- backup ---

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Export or restore the knowledge base",
}

var backupExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the knowledge base as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/knowledge/export")
		if err != nil {
			return err
		}

		var items []knowledge.Item
		if err := decodeJSON(resp, &items); err != nil {
			return err
		}

		writer := os.Stdout
		if output != "" {
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("creating output file: %w", err)
			}
			defer f.Close()
			writer = f
		}

		if err := knowledge.WriteBackup(writer, items); err != nil {
			return err
		}
		if output != "" {
			printSuccess("Exported %d entries to %s", len(items), output)
		}
		return nil
	},
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore <file>",
	Short: "Restore a backup into the knowledge base",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		replace, _ := cmd.Flags().GetBool("replace")

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening backup: %w", err)
		}
		defer f.Close()

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		path := "/knowledge/import"
		if replace {
			path += "?replace=true"
		}
		resp, err := client.postRaw(cmd.Context(), path, f)
		if err != nil {
			return err
		}

		var result struct {
			Imported int `json:"imported"`
			Total    int `json:"total"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Restored %d entries (%d total)", result.Imported, result.Total)
		return nil
	},
}

func init() {
	backupExportCmd.Flags().String("output", "", "output file path (default: stdout)")
	backupRestoreCmd.Flags().Bool("replace", false, "replace existing entries instead of merging")
	backupCmd.AddCommand(backupExportCmd)
	backupCmd.AddCommand(backupRestoreCmd)
}

// --- remove ---

var removeCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Delete a knowledge base entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return removeEntry(cmd.Context(), client, args[0])
	},
}

func removeEntry(ctx context.Context, client *apiClient, id string) error {
	resp, err := client.delete(ctx, "/knowledge/"+id)
	if err != nil {
		return err
	}
	var result map[string]json.RawMessage
	if err := decodeJSON(resp, &result); err != nil {
		return err
	}
	printSuccess("Deleted entry %s", id)
	return nil
}
