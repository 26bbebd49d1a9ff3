package metrics

// Pre-defined proving-host metrics. All live in DefaultRegistry.

var (
	// ---- Proving ----

	// ProveAttempts counts proof attempts handed to a backend.
	ProveAttempts = DefaultRegistry.Counter("zkvm.prove.attempts")
	// ProveFailures counts attempts that returned an error.
	ProveFailures = DefaultRegistry.Counter("zkvm.prove.failures")
	// ProveInFlight tracks attempts currently running.
	ProveInFlight = DefaultRegistry.Gauge("zkvm.prove.in_flight")
	// ProveDuration records attempt duration in milliseconds.
	ProveDuration = DefaultRegistry.Histogram("zkvm.prove.duration_ms")

	// ---- Verification ----

	// VerifyTotal counts verification calls that reached a verdict.
	VerifyTotal = DefaultRegistry.Counter("zkvm.verify.total")
	// VerifyRejected counts verdicts of false.
	VerifyRejected = DefaultRegistry.Counter("zkvm.verify.rejected")
	// VerifyMalformed counts receipts that could not be parsed.
	VerifyMalformed = DefaultRegistry.Counter("zkvm.verify.malformed")

	// ---- Guest ----

	// JournalBytes records the journal length of each successful attempt.
	JournalBytes = DefaultRegistry.Histogram("zkvm.journal.bytes")
	// GuestSteps records the steps taken by each successful attempt.
	GuestSteps = DefaultRegistry.Histogram("zkvm.guest.steps")

	// ---- Store ----

	// ReceiptsStored counts receipts written to the receipt store.
	ReceiptsStored = DefaultRegistry.Counter("store.receipts.put")
)
