package doctor

import (
	"context"
	"fmt"

	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/output"
)

// Run checks env, prints a summary and the issues, and applies fixes when
// fix is set. It returns an error when unfixed issues remain.
func Run(ctx context.Context, env Env, fix bool, p *output.Printer) error {
	p.Println("Running diagnostics...")
	report := Check(ctx, env)

	printSummary(p, report)

	if len(report.Issues) == 0 {
		p.Println()
		p.Println("All checks passed")
		return nil
	}

	p.Printf("\nFound %d issue(s):\n", len(report.Issues))
	printIssuesByCategory(p, report.Issues)

	if !fix {
		p.Println("\nRun 'savesync doctor --fix' to repair.")
		return fmt.Errorf("%d issues found", len(report.Issues))
	}

	fixed, err := Fix(env, report.Issues)
	p.Printf("\nFixed %d of %d issue(s)\n", fixed, len(report.Issues))
	if err != nil {
		return err
	}
	if remaining := len(report.Issues) - fixed; remaining > 0 {
		return fmt.Errorf("%d issues need attention", remaining)
	}
	return nil
}

// printSummary prints a categorized summary.
func printSummary(p *output.Printer, r Report) {
	p.Println()

	if r.Identity == "" {
		p.Check(false, "no identity set (run 'savesync identity set <id>')")
	} else {
		p.Check(true, "identity %s", r.Identity)
	}

	s := r.Stats
	p.Check(s.CacheIssues == 0, "%d cache entries (%d fresh)", s.CacheEntries, s.CacheFresh)
	if r.Identity != "" {
		p.Check(s.LocalIssues == 0, "%d local slots readable", s.LocalSlots)
	}
	if s.RemoteChecked {
		p.Check(s.RemoteOK, "save service reachable")
	}
}

// printIssuesByCategory groups and prints issues.
func printIssuesByCategory(p *output.Printer, issues []Issue) {
	byCategory := make(map[IssueCategory][]Issue)
	for _, issue := range issues {
		byCategory[issue.Category] = append(byCategory[issue.Category], issue)
	}

	categoryNames := map[IssueCategory]string{
		CategoryIdentity: "Identity issues",
		CategoryCache:    "Cache issues",
		CategoryLocal:    "Local save issues",
		CategoryRemote:   "Service issues",
	}

	for _, cat := range []IssueCategory{CategoryIdentity, CategoryCache, CategoryLocal, CategoryRemote} {
		catIssues := byCategory[cat]
		if len(catIssues) == 0 {
			continue
		}

		p.Printf("\n%s:\n", categoryNames[cat])
		for _, issue := range catIssues {
			p.Printf("  • %s: %s\n", issue.Key, issue.Description)
		}
	}
}
