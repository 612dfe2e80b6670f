package main

import (
	"fmt"
	"io"

	"github.com/StarterX4/steamlinuxchecker/internal/service"
)

func printSummaries(w io.Writer, results []*service.Result) {
	for _, r := range results {
		printSummary(w, r)
	}
}

// printSummary writes one user's scan as a fixed-width block. Minutes are
// shown as hours and minutes; a private profile shows zeros.
func printSummary(w io.Writer, r *service.Result) {
	user, scan := r.User, r.Scan

	var linux, mac, windows, total int64
	var score float64
	if r.Private || !user.Public() {
		fmt.Fprint(w, "\nPRIVATE ACCOUNT")
	} else if scan != nil {
		linux, mac, windows, total = scan.Linux, scan.Mac, scan.Windows, scan.Total
		score = scan.Score()
	}

	fmt.Fprintf(w, "\n%s\n", deref(user.ProfileURL))
	fmt.Fprintf(w, "SteamID: %18d\n", user.ID)
	fmt.Fprintf(w, "Persona:   %16s\n", deref(user.Persona))
	fmt.Fprintf(w, "Name:      %16s\n", deref(user.RealName))
	fmt.Fprintf(w, "Linux:     %s\n", hoursMinutes(linux))
	fmt.Fprintf(w, "Mac:       %s\n", hoursMinutes(mac))
	fmt.Fprintf(w, "Windows:   %s\n", hoursMinutes(windows))
	fmt.Fprintf(w, "Total:     %s\n", hoursMinutes(total))
	fmt.Fprintf(w, "Score:     %15.2f%%\n", score*100)
	if r.Partial {
		fmt.Fprint(w, "(partial: a malformed game record ended the scan)\n")
	}
}

func hoursMinutes(minutes int64) string {
	return fmt.Sprintf("%11dh %2dm", minutes/60, minutes%60)
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
