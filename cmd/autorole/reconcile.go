package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/autorole/internal/domain/catalog"
	"github.com/okian/autorole/internal/domain/model"
	"github.com/okian/autorole/internal/domain/reconcile"
)

// snapshotFile is the JSON form of a profile snapshot read by reconcile.
type snapshotFile struct {
	SubjectID         string `json:"subject_id"`
	LanguageID        int    `json:"language_id"`
	MaxNormal         int    `json:"max_normal"`
	MaxAdvanced       int    `json:"max_advanced"`
	TestsTaken        int    `json:"tests_taken"`
	CompetitionsTaken int    `json:"competitions_taken"`
	Supporter         bool   `json:"supporter"`
	Translator        bool   `json:"translator"`
	Completionist     bool   `json:"completionist"`
	Multilingual      bool   `json:"multilingual"`
	AccountAgeYears   int    `json:"account_age_years"`
}

func (f snapshotFile) snapshot() model.ProfileSnapshot {
	return model.ProfileSnapshot{
		SubjectID:         f.SubjectID,
		LanguageID:        f.LanguageID,
		MaxNormal:         f.MaxNormal,
		MaxAdvanced:       f.MaxAdvanced,
		TestsTaken:        f.TestsTaken,
		CompetitionsTaken: f.CompetitionsTaken,
		Supporter:         f.Supporter,
		Translator:        f.Translator,
		Completionist:     f.Completionist,
		Multilingual:      f.Multilingual,
		AccountAgeYears:   f.AccountAgeYears,
	}
}

type reconcileOutput struct {
	Add           []string                      `json:"add"`
	Remove        []string                      `json:"remove"`
	Notifications []model.HighScoreNotification `json:"notifications,omitempty"`
}

type reconcileFlags struct {
	catalogPath string
	snapshot    string
	roles       []string
	normal      int
	advanced    int
}

func newReconcileCmd() *cobra.Command {
	var f reconcileFlags
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Print the role diff of a snapshot without touching a guild",
		Example: `  autorole reconcile --snapshot snap.json --roles norm-100,verified
  echo '{"max_normal":135}' | autorole reconcile --snapshot - --normal 120`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReconcile(cmd, f)
		},
	}
	cmd.Flags().StringVar(&f.catalogPath, "catalog", "configs/roles.example.yaml", "role catalog file")
	cmd.Flags().StringVar(&f.snapshot, "snapshot", "-", "snapshot JSON file, - for stdin")
	cmd.Flags().StringSliceVar(&f.roles, "roles", nil, "role ids the member holds")
	cmd.Flags().IntVar(&f.normal, "normal", -1, "explicit normal WPM target")
	cmd.Flags().IntVar(&f.advanced, "advanced", -1, "explicit advanced WPM target")
	return cmd
}

func runReconcile(cmd *cobra.Command, f reconcileFlags) error {
	c, err := catalog.Load(f.catalogPath)
	if err != nil {
		return err
	}

	var in io.Reader = cmd.InOrStdin()
	if f.snapshot != "-" {
		file, err := os.Open(f.snapshot)
		if err != nil {
			return fmt.Errorf("open snapshot: %w", err)
		}
		defer file.Close()
		in = file
	}
	var sf snapshotFile
	if err := json.NewDecoder(in).Decode(&sf); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}

	var o reconcile.Overrides
	if f.normal >= 0 {
		o.Normal = &f.normal
	}
	if f.advanced >= 0 {
		o.Advanced = &f.advanced
	}

	res, err := reconcile.New(c).Reconcile(model.NewRoleSet(f.roles...), sf.snapshot(), o)
	if err != nil {
		return err
	}

	out := reconcileOutput{
		Add:           nonNil(res.Diff.ToAdd),
		Remove:        nonNil(res.Diff.ToRemove),
		Notifications: res.Notifications,
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
