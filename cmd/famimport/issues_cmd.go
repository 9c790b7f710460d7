package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/loyd0/LoydFam-sub000/internal/models"
	"github.com/loyd0/LoydFam-sub000/internal/repositories"
)

type issuesOutput struct {
	Counts map[models.Severity]int `json:"counts"`
	Issues []*models.ImportIssue   `json:"issues"`
}

func newIssuesCmd(a *app) *cobra.Command {
	var (
		severity string
		code     string
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "issues",
		Short: "List validation issues of the latest run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := repositories.IssueFilter{
				Severity: models.Severity(strings.ToUpper(severity)),
				Code:     models.IssueCode(strings.ToUpper(code)),
				Limit:    limit,
			}
			switch filter.Severity {
			case "", models.SeverityError, models.SeverityWarning, models.SeverityInfo:
			default:
				return fmt.Errorf("invalid --severity %q", severity)
			}

			db, err := a.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			counts, err := repositories.CountIssuesBySeverity(cmd.Context(), db)
			if err != nil {
				return err
			}
			issues, err := repositories.ListIssues(cmd.Context(), db, filter)
			if err != nil {
				return err
			}
			return writeJSON(issuesOutput{Counts: counts, Issues: issues})
		},
	}

	cmd.Flags().StringVar(&severity, "severity", "", "Filter by severity (ERROR, WARNING, INFO)")
	cmd.Flags().StringVar(&code, "code", "", "Filter by issue code, e.g. MISSING_DOB")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of issues (0 for all)")
	return cmd
}
