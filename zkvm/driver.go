package zkvm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/lambdaclass/zk-benchmarks/guest"
	"github.com/lambdaclass/zk-benchmarks/journal"
	"github.com/lambdaclass/zk-benchmarks/log"
	"github.com/lambdaclass/zk-benchmarks/metrics"
)

// Span attribute keys.
var (
	AttrAttemptID  = attribute.Key("zkvm.attempt.id")
	AttrProgram    = attribute.Key("zkvm.program.name")
	AttrProgramID  = attribute.Key("zkvm.program.id")
	AttrBackend    = attribute.Key("zkvm.backend")
	AttrSteps      = attribute.Key("zkvm.guest.steps")
	AttrJournalLen = attribute.Key("zkvm.journal.len")
	AttrVerified   = attribute.Key("zkvm.verify.ok")
)

// ProveInfo describes one proof attempt.
type ProveInfo struct {
	AttemptID  uuid.UUID
	Program    string
	ProgramID  common.Hash
	Backend    string
	Steps      uint64
	JournalLen int
	Duration   time.Duration
}

// Driver runs proof attempts and verifications against one backend,
// recording logs, metrics and trace spans for each. Attempts are
// independent; a Driver may be shared by concurrent callers as long as each
// attempt has its own ExecutionContext.
type Driver struct {
	backend Backend
	log     *log.Logger
	tracer  trace.Tracer
}

// NewDriver creates a driver for backend. A nil logger selects the
// package default.
func NewDriver(backend Backend, logger *log.Logger) *Driver {
	if logger == nil {
		logger = log.Default()
	}
	return &Driver{
		backend: backend,
		log:     logger.Module("zkvm").With("backend", backend.Name()),
		tracer:  otel.Tracer("github.com/lambdaclass/zk-benchmarks/zkvm"),
	}
}

// Backend returns the driver's backend.
func (d *Driver) Backend() Backend { return d.backend }

// Prove runs one proof attempt. It blocks until the backend returns and
// never retries; ErrProving and ErrBackendUnavailable are surfaced as is.
func (d *Driver) Prove(ctx context.Context, program *guest.Program, ec *ExecutionContext) (*Receipt, *ProveInfo, error) {
	info := &ProveInfo{
		AttemptID: uuid.New(),
		Backend:   d.backend.Name(),
	}
	if program != nil {
		info.Program = program.Name
	}
	if ec != nil {
		info.ProgramID = ec.ProgramID()
	}

	ctx, span := d.tracer.Start(ctx, "zkvm.Prove", trace.WithAttributes(
		AttrAttemptID.String(info.AttemptID.String()),
		AttrProgram.String(info.Program),
		AttrProgramID.String(info.ProgramID.Hex()),
		AttrBackend.String(info.Backend),
	))
	defer span.End()

	metrics.ProveAttempts.Inc()
	metrics.ProveInFlight.Inc()
	defer metrics.ProveInFlight.Dec()
	timer := metrics.NewTimer(metrics.ProveDuration)

	logger := d.log.With("attempt", info.AttemptID.String(), "program", info.Program)
	logger.Debug("Proof attempt started", "inputs", contextLen(ec))

	res, err := d.backend.Prove(ctx, program, ec)
	info.Duration = timer.Stop()
	if err == nil && (res == nil || res.Receipt == nil) {
		err = fmt.Errorf("%w: backend returned no receipt", ErrProving)
	}
	if err != nil {
		metrics.ProveFailures.Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Warn("Proof attempt failed", "err", err, "elapsed", info.Duration)
		return nil, info, err
	}

	info.ProgramID = res.ProgramID
	info.Steps = res.Steps
	info.JournalLen = len(res.Receipt.Journal)
	metrics.GuestSteps.Observe(float64(info.Steps))
	metrics.JournalBytes.Observe(float64(info.JournalLen))
	span.SetAttributes(AttrSteps.Int64(int64(info.Steps)), AttrJournalLen.Int(info.JournalLen))

	logger.Info("Proof attempt complete",
		"id", info.ProgramID.TerminalString(),
		"steps", info.Steps,
		"journal", info.JournalLen,
		"elapsed", info.Duration)
	return res.Receipt, info, nil
}

// Verify checks receipt against the expected program identity. A false
// result is a normal outcome; errors are reserved for unparseable receipts
// and unreachable backends.
func (d *Driver) Verify(ctx context.Context, receipt *Receipt, programID common.Hash) (bool, error) {
	ctx, span := d.tracer.Start(ctx, "zkvm.Verify", trace.WithAttributes(
		AttrProgramID.String(programID.Hex()),
		AttrBackend.String(d.backend.Name()),
	))
	defer span.End()

	if receipt == nil {
		metrics.VerifyMalformed.Inc()
		err := fmt.Errorf("%w: nil receipt", ErrMalformedReceipt)
		span.RecordError(err)
		return false, err
	}

	ok, err := d.backend.Verify(ctx, receipt, programID)
	if err != nil {
		if errors.Is(err, ErrMalformedReceipt) {
			metrics.VerifyMalformed.Inc()
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		d.log.Warn("Verification failed to run", "id", programID.TerminalString(), "err", err)
		return false, err
	}

	metrics.VerifyTotal.Inc()
	span.SetAttributes(AttrVerified.Bool(ok))
	if !ok {
		metrics.VerifyRejected.Inc()
		d.log.Warn("Receipt rejected", "id", programID.TerminalString(), "proof", receipt.ProofSystem)
		return false, nil
	}
	d.log.Debug("Receipt verified", "id", programID.TerminalString(), "journal", len(receipt.Journal))
	return true, nil
}

// VerifyBytes parses a binary receipt and verifies it. Only parse failures
// yield ErrMalformedReceipt.
func (d *Driver) VerifyBytes(ctx context.Context, data []byte, programID common.Hash) (bool, error) {
	receipt, err := ParseReceipt(data)
	if err != nil {
		metrics.VerifyMalformed.Inc()
		return false, err
	}
	return d.Verify(ctx, receipt, programID)
}

// DecodeJournal decodes the journal of a receipt with layout. It does not
// verify the receipt.
func DecodeJournal(receipt *Receipt, layout journal.Layout) ([]journal.Value, error) {
	if receipt == nil {
		return nil, fmt.Errorf("%w: nil receipt", ErrMalformedReceipt)
	}
	return receipt.Decode(layout)
}

func contextLen(ec *ExecutionContext) int {
	if ec == nil {
		return 0
	}
	return ec.Len()
}
