package schedules

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/docwatch/docwatch/cmd/cli/config"
	"github.com/docwatch/docwatch/cmd/cli/output"
)

type schedule struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"owner_id"`
	SubjectID   string     `json:"subject_id"`
	Enabled     bool       `json:"enabled"`
	Frequency   string     `json:"frequency"`
	TimeOfDay   string     `json:"time_of_day"`
	Recipient   string     `json:"recipient"`
	SubjectName string     `json:"subject_name"`
	NextRunAt   *time.Time `json:"next_run_at"`
	LastRunAt   *time.Time `json:"last_run_at"`
	LastStatus  string     `json:"last_status"`
	LastError   string     `json:"last_error"`
}

// ==========================
// Init Schedules
// ==========================
func InitSchedules(rootCmd *cobra.Command) {

	schedulesCmd := &cobra.Command{
		Use:   "schedules",
		Short: "Manage scan schedules",
	}

	schedulesCmd.AddCommand(
		listSchedulesCmd(),
		getScheduleCmd(),
		setScheduleCmd(),
		enableScheduleCmd(),
		disableScheduleCmd(),
		triggerScheduleCmd(),
		deleteScheduleCmd(),
	)

	rootCmd.AddCommand(schedulesCmd)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func printJSONBody(body io.Reader) {
	var out any
	json.NewDecoder(body).Decode(&out)
	b, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(b))
}

// ==========================
// LIST
// ==========================
func listSchedulesCmd() *cobra.Command {

	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List scan schedules",
		Run: func(cmd *cobra.Command, args []string) {

			resp, err := http.Get(config.APIURL() + "/schedules")
			if err != nil {
				fmt.Println(err)
				return
			}
			defer resp.Body.Close()

			var out struct {
				Items []schedule `json:"items"`
				Total int        `json:"total"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
				fmt.Println("Invalid response:", err)
				return
			}

			if asJSON {
				b, _ := json.MarshalIndent(out.Items, "", "  ")
				fmt.Println(string(b))
				return
			}

			rows := make([][]interface{}, 0, len(out.Items))
			for _, s := range out.Items {
				enabled := "no"
				if s.Enabled {
					enabled = "yes"
				}
				rows = append(rows, []interface{}{
					s.ID, s.SubjectName, s.Frequency, s.TimeOfDay, enabled,
					formatTime(s.NextRunAt), s.LastStatus,
				})
			}
			output.RenderTable(
				[]string{"ID", "Subject", "Frequency", "Time", "Enabled", "Next run", "Last status"},
				rows,
			)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "output raw JSON")

	return cmd
}

// ==========================
// GET
// ==========================
func getScheduleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get [id]",
		Short: "Show one schedule",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {

			resp, err := http.Get(config.APIURL() + "/schedules/" + args[0])
			if err != nil {
				fmt.Println(err)
				return
			}
			defer resp.Body.Close()

			printJSONBody(resp.Body)
		},
	}
}

// ==========================
// SET (create or update)
// ==========================
func setScheduleCmd() *cobra.Command {

	var ownerID string
	var subjectID string
	var frequency string
	var timeOfDay string
	var recipient string
	var subjectName string
	var subjectContext string
	var disabled bool

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Create or update a schedule for a document",
		Run: func(cmd *cobra.Command, args []string) {

			payload := map[string]interface{}{
				"owner_id":        ownerID,
				"subject_id":      subjectID,
				"frequency":       frequency,
				"time_of_day":     timeOfDay,
				"recipient":       recipient,
				"subject_name":    subjectName,
				"subject_context": subjectContext,
				"enabled":         !disabled,
			}

			body, _ := json.Marshal(payload)

			req, _ := http.NewRequest("PUT", config.APIURL()+"/schedules", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")

			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				fmt.Println(err)
				return
			}
			defer resp.Body.Close()

			printJSONBody(resp.Body)
		},
	}

	cmd.Flags().StringVar(&ownerID, "owner", "", "owner account id")
	cmd.Flags().StringVar(&subjectID, "subject", "", "document id")
	cmd.Flags().StringVar(&frequency, "frequency", "", "daily, weekly, or monthly")
	cmd.Flags().StringVar(&timeOfDay, "time", "", "time of day, HH:MM")
	cmd.Flags().StringVar(&recipient, "recipient", "", "notification recipient")
	cmd.Flags().StringVar(&subjectName, "name", "", "document display name")
	cmd.Flags().StringVar(&subjectContext, "context", "", "opaque scan context")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "create the schedule disabled")

	return cmd
}

// ==========================
// ENABLE / DISABLE
// ==========================
func enableScheduleCmd() *cobra.Command {
	return toggleCmd("enable", "Enable a schedule")
}

func disableScheduleCmd() *cobra.Command {
	return toggleCmd("disable", "Disable a schedule")
}

func toggleCmd(action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " [id]",
		Short: short,
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {

			resp, err := http.Post(config.APIURL()+"/schedules/"+args[0]+"/"+action, "application/json", nil)
			if err != nil {
				fmt.Println(err)
				return
			}
			defer resp.Body.Close()

			printJSONBody(resp.Body)
		},
	}
}

// ==========================
// TRIGGER
// ==========================
func triggerScheduleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "trigger [id]",
		Short: "Run a schedule's scan immediately",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {

			resp, err := http.Post(config.APIURL()+"/schedules/"+args[0]+"/trigger", "application/json", nil)
			if err != nil {
				fmt.Println(err)
				return
			}
			defer resp.Body.Close()

			printJSONBody(resp.Body)
		},
	}
}

// ==========================
// DELETE
// ==========================
func deleteScheduleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a schedule",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {

			req, _ := http.NewRequest("DELETE", config.APIURL()+"/schedules/"+args[0], nil)

			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				fmt.Println(err)
				return
			}
			defer resp.Body.Close()

			if resp.StatusCode == 204 {
				fmt.Println("Schedule deleted")
			} else {
				fmt.Println("Failed to delete schedule")
			}
		},
	}
}
