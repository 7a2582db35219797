package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/eliteGoblin/focusd/usage_mon/internal/domain"
)

var permissionCmd = &cobra.Command{
	Use:   "permission",
	Short: "Check usage access permission",
	Long: `Reports whether usagemon may read usage data.
On macOS this requires Full Disk Access for the terminal or binary.`,
	RunE: runPermission,
}

var permissionRequestCmd = &cobra.Command{
	Use:   "request",
	Short: "Open the settings screen to grant usage access",
	RunE:  runPermissionRequest,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show usage per app over a time range",
	Long: `Shows foreground time per app between --start and --end (default: today).
Times accept RFC 3339, YYYY-MM-DD, YYYY-MM-DD HH:MM or epoch milliseconds.`,
	RunE: runStats,
}

var todayCmd = &cobra.Command{
	Use:   "today",
	Short: "Show usage per app since local midnight",
	RunE:  runToday,
}

var currentCmd = &cobra.Command{
	Use:   "current",
	Short: "Show the app most recently in the foreground",
	RunE:  runCurrent,
}

var appsCmd = &cobra.Command{
	Use:   "apps",
	Short: "List user-installed apps with their category",
	RunE:  runApps,
}

var detailedCmd = &cobra.Command{
	Use:   "detailed",
	Short: "Show usage bucketed by day, week, month or year",
	Long: `Shows one row per app per bucket between --start and --end.
--interval is daily, weekly, monthly, yearly or best (any other value means best).`,
	RunE: runDetailed,
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show usage rolled up by category",
	RunE:  runReport,
}

var (
	startFlag    string
	endFlag      string
	intervalFlag string
)

func init() {
	for _, c := range []*cobra.Command{statsCmd, detailedCmd, reportCmd} {
		c.Flags().StringVar(&startFlag, "start", "", "Range start (default: local midnight)")
		c.Flags().StringVar(&endFlag, "end", "", "Range end (default: now)")
	}
	detailedCmd.Flags().StringVar(&intervalFlag, "interval", "best", "Bucket size: daily, weekly, monthly, yearly, best")

	permissionCmd.AddCommand(permissionRequestCmd)
	rootCmd.AddCommand(permissionCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(todayCmd)
	rootCmd.AddCommand(currentCmd)
	rootCmd.AddCommand(appsCmd)
	rootCmd.AddCommand(detailedCmd)
	rootCmd.AddCommand(reportCmd)
}

func runPermission(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	granted := a.service.HasUsageStatsPermission()
	if jsonOutput {
		return printJSON(map[string]bool{"granted": granted})
	}
	if granted {
		fmt.Println("Usage access: granted")
	} else {
		fmt.Println("Usage access: NOT granted")
		fmt.Println("Run `usagemon permission request` and enable Full Disk Access.")
	}
	return nil
}

func runPermissionRequest(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ok, err := a.service.RequestUsageStatsPermission()
	if err != nil {
		return withCode(err)
	}
	if jsonOutput {
		return printJSON(map[string]bool{"launched": ok})
	}
	fmt.Println("Opened settings. Re-run `usagemon permission` after granting access.")
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	window, err := parseWindow(startFlag, endFlag, time.Now())
	if err != nil {
		return err
	}
	summaries, err := a.service.GetUsageStats(cmd.Context(), window.Start.UnixMilli(), window.End.UnixMilli())
	if err != nil {
		return withCode(err)
	}
	return printSummaries(summaries, false)
}

func runToday(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	summaries, err := a.service.GetTodayUsageStats(cmd.Context())
	if err != nil {
		return withCode(err)
	}
	return printSummaries(summaries, false)
}

func runCurrent(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	current, err := a.service.GetCurrentForegroundApp(cmd.Context())
	if err != nil {
		return withCode(err)
	}
	if jsonOutput {
		return printJSON(current)
	}
	if current == nil {
		fmt.Println("No app used in the last two minutes.")
		return nil
	}
	fmt.Printf("%s (%s), last used %s\n", current.AppName, current.PackageID, formatMillis(current.LastTimeUsed))
	return nil
}

func runApps(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	apps, err := a.service.GetInstalledApps(cmd.Context())
	if err != nil {
		return withCode(err)
	}
	if jsonOutput {
		return printJSON(apps)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "APP\tPACKAGE\tCATEGORY")
	for _, entry := range apps {
		fmt.Fprintf(w, "%s\t%s\t%s\n", entry.AppName, entry.PackageID, entry.Category)
	}
	return w.Flush()
}

func runDetailed(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	window, err := parseWindow(startFlag, endFlag, time.Now())
	if err != nil {
		return err
	}
	summaries, err := a.service.GetDetailedUsageStats(cmd.Context(),
		window.Start.UnixMilli(), window.End.UnixMilli(), intervalFlag)
	if err != nil {
		return withCode(err)
	}
	return printSummaries(summaries, true)
}

func runReport(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	window, err := parseWindow(startFlag, endFlag, time.Now())
	if err != nil {
		return err
	}
	rows, err := a.service.CategoryReport(cmd.Context(), window)
	if err != nil {
		return withCode(err)
	}
	if jsonOutput {
		return printJSON(rows)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CATEGORY\tFOREGROUND\tAPPS USED\tAPPS INSTALLED")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", r.Category, formatDuration(r.TotalForegroundMs), r.AppsUsed, r.AppsInstalled)
	}
	return w.Flush()
}

func printSummaries(summaries []domain.UsageSummary, withBucket bool) error {
	if jsonOutput {
		return printJSON(summaries)
	}
	if len(summaries) == 0 {
		fmt.Println("No usage recorded.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	if withBucket {
		fmt.Fprintln(w, "FROM\tAPP\tPACKAGE\tFOREGROUND\tVISIBLE\tLAST USED")
	} else {
		fmt.Fprintln(w, "APP\tPACKAGE\tFOREGROUND\tVISIBLE\tLAST USED")
	}
	for _, s := range summaries {
		visible := "-"
		if s.TotalVisibleMs != nil {
			visible = formatDuration(*s.TotalVisibleMs)
		}
		if withBucket {
			fmt.Fprintf(w, "%s\t", time.UnixMilli(s.FirstTimestamp).Format("2006-01-02"))
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			s.AppName, s.PackageID, formatDuration(s.TotalForegroundMs), visible, formatMillis(s.LastTimeUsed))
	}
	return w.Flush()
}

// parseWindow resolves --start/--end, defaulting to [local midnight, now).
func parseWindow(start, end string, now time.Time) (domain.TimeWindow, error) {
	window := domain.TodayWindow(now)
	if start != "" {
		t, err := parseTime(start)
		if err != nil {
			return window, fmt.Errorf("invalid --start: %w", err)
		}
		window.Start = t
	}
	if end != "" {
		t, err := parseTime(end)
		if err != nil {
			return window, fmt.Errorf("invalid --end: %w", err)
		}
		window.End = t
	}
	return window, nil
}

var timeLayouts = []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02"}

func parseTime(s string) (time.Time, error) {
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms), nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}

func formatDuration(ms int64) string {
	return (time.Duration(ms) * time.Millisecond).Round(time.Second).String()
}

func formatMillis(ms int64) string {
	if ms == 0 {
		return "-"
	}
	return time.UnixMilli(ms).Format("2006-01-02 15:04:05")
}
