package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/openpay/internal/config"
	"github.com/jonathan/openpay/internal/types"
)

func newAddSalaryCmd(opts *rootOptions) *cobra.Command {
	var (
		sub     types.SalarySubmission
		level   string
		totalXP int
		inFile  string
	)

	cmd := &cobra.Command{
		Use:   "add-salary",
		Short: "Add a community salary",
		Long:  "Validate and store a community salary, from flags or from a JSON submission (--in, - for stdin).",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if inFile != "" {
				loaded, err := readSubmission(cmd.InOrStdin(), inFile)
				if err != nil {
					return err
				}
				sub = *loaded
			} else {
				if level != "" {
					l := types.Level(level)
					sub.Level = &l
				}
				if cmd.Flags().Changed("total-xp") {
					sub.TotalXP = &totalXP
				}
			}

			a, err := newApp(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			saved, err := a.service.AddSalary(cmd.Context(), sub)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), saved)
		},
	}
	cmd.Flags().StringVar(&sub.Company, "company", "", "Company name")
	cmd.Flags().StringVar(&sub.Title, "title", "", "Job title")
	cmd.Flags().StringVar(&sub.Location, "location", "", "City")
	cmd.Flags().Float64Var(&sub.Compensation, "compensation", 0, "Yearly gross compensation, in the local currency")
	cmd.Flags().StringVar(&sub.Country, "country", "", "Country (defaults to the community market)")
	cmd.Flags().StringVar(&level, "level", "", "Junior, Mid, Senior or Lead")
	cmd.Flags().IntVar(&totalXP, "total-xp", 0, "Total years of experience")
	cmd.Flags().StringVar(&inFile, "in", "", "Read a JSON submission from a file, - for stdin")
	return cmd
}

func readSubmission(stdin io.Reader, path string) (*types.SalarySubmission, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open submission: %w", err)
		}
		defer f.Close()
		r = f
	}

	var sub types.SalarySubmission
	if err := json.NewDecoder(r).Decode(&sub); err != nil {
		return nil, fmt.Errorf("failed to parse submission: %w", err)
	}
	return &sub, nil
}

func newRefreshCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Drop the cached records and reload them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.service.Refresh(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d records loaded\n", n)
			return nil
		},
	}
}

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password",
		Short: "Hash a moderator password for MODERATOR_PASSWORD_HASH",
		Long:  "Read a password from the first line of stdin and print its bcrypt hash, using BCRYPT_COST and PASSWORD_PEPPER.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			passwords, err := config.NewPasswordConfig()
			if err != nil {
				return err
			}

			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && err != io.EOF {
				return fmt.Errorf("failed to read password: %w", err)
			}

			hash, err := passwords.HashPassword(strings.TrimRight(line, "\r\n"))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
