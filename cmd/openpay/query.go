package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/openpay/internal/filter"
	"github.com/jonathan/openpay/internal/observability"
	"github.com/jonathan/openpay/internal/types"
)

func newStatsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats <job>",
		Short: "Print the salary report of a job",
		Long:  "Resolve the job to known titles and print the statistics, distribution, summary and learning paths as JSON.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.service.Search(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), opts, report, func(p *observability.Printer) {
				p.PrintReport(report)
			})
		},
	}
}

func newTitlesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "titles",
		Short: "List the known job titles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			titles, err := a.service.Titles(cmd.Context())
			if err != nil {
				return err
			}
			for _, title := range titles {
				fmt.Fprintln(cmd.OutOrStdout(), title)
			}
			return nil
		},
	}
}

func newSuggestCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "suggest <query>",
		Short: "Suggest job titles for a partial query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			titles, err := a.service.Suggest(cmd.Context(), strings.Join(args, " "), limit)
			if err != nil {
				return err
			}
			for _, title := range titles {
				fmt.Fprintln(cmd.OutOrStdout(), title)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, fmt.Sprintf("Maximum number of suggestions (default %d)", filter.DefaultSuggestLimit))
	return cmd
}

func newMatchCmd(opts *rootOptions) *cobra.Command {
	var (
		tech       []string
		education  string
		experience int
		info       string
	)

	cmd := &cobra.Command{
		Use:   "match",
		Short: "Match skills to job titles",
		Long:  "Rank job titles by compatibility with the given technologies and education, with the average salary of each.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			skills := types.UserSkills{
				Technologies:   tech,
				Education:      education,
				AdditionalInfo: info,
			}
			if cmd.Flags().Changed("experience") {
				skills.Experience = &experience
			}

			a, err := newApp(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			resp, err := a.service.MatchJobs(cmd.Context(), skills)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), opts, resp, func(p *observability.Printer) {
				p.PrintMatches(resp)
			})
		},
	}
	cmd.Flags().StringSliceVar(&tech, "tech", nil, "Technologies, repeated or comma-separated (required)")
	cmd.Flags().StringVar(&education, "education", "", "Highest education level (required)")
	cmd.Flags().IntVar(&experience, "experience", 0, "Years of experience")
	cmd.Flags().StringVar(&info, "info", "", "Additional information")
	_ = cmd.MarkFlagRequired("tech")
	_ = cmd.MarkFlagRequired("education")
	return cmd
}

func newDescribeCmd(opts *rootOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "describe [text]",
		Short: "Suggest job titles for a free-text self-description",
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if file != "" {
				data, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("failed to read description: %w", err)
				}
				text = string(data)
			}
			if strings.TrimSpace(text) == "" {
				return fmt.Errorf("a description is required, as arguments or with --file")
			}

			a, err := newApp(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			suggestions, err := a.service.ParseDescription(cmd.Context(), text)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), opts, suggestions, func(p *observability.Printer) {
				p.PrintSuggestions(suggestions)
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read the description from a file")
	return cmd
}
