package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"

	jwttoken "carebridge/internal/jwt_token"
	"carebridge/internal/platform/logger"
	"carebridge/internal/verification/client"
	"carebridge/internal/verification/executor"
	"carebridge/internal/verification/models"
	"carebridge/internal/verification/workflow"
	id "carebridge/pkg/domain"
	dErrors "carebridge/pkg/domain-errors"
	"carebridge/pkg/platform/audit/publishers/ops"
	"carebridge/pkg/platform/audit/store/logstore"
)

// console drives the executor for one command invocation.
type console struct {
	exec   *executor.Executor
	stdout io.Writer
	stderr io.Writer
}

func newConsole(cfg settings, stdout, stderr io.Writer) (*console, error) {
	log := logger.NewWithWriter(stderr, "text", cfg.LogLevel)
	svcClient, err := client.New(cfg.Client.BaseURL, cfg.Client.Token,
		client.WithTimeout(cfg.Client.Timeout),
		client.WithLogger(log),
	)
	if err != nil {
		return nil, err
	}
	tracker := ops.New(logstore.New(log),
		ops.WithSuppressor(ops.NewSuppressor(cfg.SuppressWindow, cfg.SuppressThreshold)),
		ops.WithLogger(log),
	)
	exec, err := executor.New(svcClient,
		executor.WithLogger(log),
		executor.WithAuditTracker(tracker),
	)
	if err != nil {
		return nil, err
	}
	return &console{exec: exec, stdout: stdout, stderr: stderr}, nil
}

func (c *console) list(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("list", pflag.ContinueOnError)
	fs.SetOutput(c.stderr)
	status := fs.String("status", "all", "filter by account status")
	if err := fs.Parse(args); err != nil {
		return err
	}
	filter := models.AccountStatus(strings.ToLower(*status))
	if filter != "all" && !filter.IsValid() {
		return fmt.Errorf("unknown status %q", *status)
	}

	records, err := c.exec.Refresh(ctx)
	if err != nil {
		return describe(err)
	}
	var shown []*models.Record
	for _, r := range records {
		if filter == "all" || r.AccountStatus == filter {
			shown = append(shown, r)
		}
	}
	renderRoster(c.stdout, shown)
	return nil
}

func (c *console) show(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("show needs exactly one therapist id")
	}
	therapistID, err := id.ParseTherapistID(args[0])
	if err != nil {
		return err
	}
	if _, err := c.exec.Refresh(ctx); err != nil {
		return describe(err)
	}
	rec, ok := c.exec.Record(therapistID)
	if !ok {
		return fmt.Errorf("therapist %s is not in the roster", therapistID)
	}
	summary, _ := c.exec.Summary(therapistID)
	renderStepper(c.stdout, rec, summary)
	return nil
}

func (c *console) decide(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("decide", pflag.ContinueOnError)
	fs.SetOutput(c.stderr)
	notes := fs.String("notes", "", "notes appended to the verification history")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 3 {
		return errors.New("decide needs <therapist-id> <stage> <approve|reject>")
	}
	therapistID, err := id.ParseTherapistID(fs.Arg(0))
	if err != nil {
		return err
	}
	stage, err := models.ParseDecisionStage(fs.Arg(1))
	if err != nil {
		return err
	}
	decision, err := models.ParseDecision(fs.Arg(2))
	if err != nil {
		return err
	}

	if _, err := c.exec.Refresh(ctx); err != nil {
		return describe(err)
	}
	rec, err := c.exec.SubmitDecision(ctx, therapistID, stage, decision, *notes)
	if err != nil {
		return describe(err)
	}
	fmt.Fprintf(c.stdout, "%s %s for %s\n", stage.Label(), decision, rec.FullName())
	renderStepper(c.stdout, rec, workflow.Summarize(rec))
	return nil
}

func runToken(cfg settings, args []string, stdout, stderr io.Writer) error {
	fs := pflag.NewFlagSet("token", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	subject := fs.String("subject", "", "administrator the token is issued to")
	ttl := fs.Duration("ttl", cfg.Auth.TokenTTL, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	svc := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer, cfg.Auth.JWTAudience)
	token, err := svc.GenerateAdminToken(*subject, *ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, token)
	return nil
}

// describe turns the executor's failure taxonomy into console guidance.
func describe(err error) error {
	switch {
	case errors.Is(err, models.ErrStageNotActionable):
		return fmt.Errorf("not actionable: %w", err)
	case errors.Is(err, models.ErrDecisionInProgress):
		return fmt.Errorf("a decision for this therapist is already in flight: %w", err)
	case errors.Is(err, models.ErrUnauthorized):
		return fmt.Errorf("not permitted, check VERIFY_TOKEN: %w", err)
	case models.IsRetryable(err):
		return fmt.Errorf("verification service unreachable, retry later: %w", err)
	case dErrors.HasCode(err, dErrors.CodeNotFound):
		return fmt.Errorf("unknown therapist: %w", err)
	}
	return err
}

func renderRoster(w io.Writer, records []*models.Record) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSTATUS\tPROGRESS\tCURRENT STEP")
	for _, r := range records {
		s := workflow.Summarize(r)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d/%d\t%s\n",
			r.ID, r.FullName(), s.Badge, s.Progress, models.StageCount, s.CurrentStep)
	}
	_ = tw.Flush()
}

var stageMarks = map[models.StageStatus]string{
	models.StatusCompleted: "[x]",
	models.StatusCurrent:   "[>]",
	models.StatusPending:   "[ ]",
	models.StatusFailed:    "[!]",
}

func renderStepper(w io.Writer, r *models.Record, s workflow.Summary) {
	fmt.Fprintf(w, "%s <%s>  license %s/%s  status %s\n", r.FullName(), r.Email, r.LicenseState, r.LicenseNumber, s.Badge)
	for i, v := range s.Stages {
		fmt.Fprintf(w, "  %s %d. %s (%s)\n", stageMarks[v.Status], i+1, v.Label, v.Status)
	}
	fmt.Fprintf(w, "  progress %d/%d, %s\n", s.Progress, models.StageCount, s.CurrentStep)
	if r.VerificationNotes != "" {
		fmt.Fprintln(w, "  notes:")
		for line := range strings.SplitSeq(r.VerificationNotes, "\n") {
			fmt.Fprintln(w, "    "+line)
		}
	}
}
