// Package hitlclient provides a Go client for human-in-the-loop agent sessions.
//
// The agent runs on a session service and may pause before a tool call to ask
// for approval. The client detects the pause, asks a Negotiator (or a human
// Operator) how to proceed, and resumes the agent with one of four
// directives: Accept, Reject, Edit (approve with new arguments) or Respond
// (decline and answer in free text). This repeats through any number of
// pauses until the agent completes or fails.
//
// # Basic Usage
//
// For a single query, use the Query function:
//
//	ctx := context.Background()
//	result, err := hitlclient.Query(ctx, "Book a hotel in Beijing",
//	    hitlclient.WithUserID("alice"),
//	    hitlclient.WithNegotiator(hitlclient.AcceptAll()),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	switch result.Outcome {
//	case hitlclient.OutcomeCompleted:
//	    fmt.Println(result.FinalMessage())
//	case hitlclient.OutcomeError:
//	    fmt.Println("agent failed:", result.Message)
//	}
//
// # Sessions
//
// For several queries on one session, use NewClient or the WithClient helper:
//
//	err := hitlclient.WithClient(ctx, func(c hitlclient.Client) error {
//	    if _, err := c.Reconcile(ctx); err != nil {
//	        return err
//	    }
//	    for _, q := range queries {
//	        if _, err := c.Query(ctx, q); err != nil {
//	            return err
//	        }
//	    }
//	    return nil
//	},
//	    hitlclient.WithSessionID("trip-planning"),
//	    hitlclient.WithOperator(myOperator),
//	)
//
// # Deciding Interrupts
//
// A NegotiatorFunc decides programmatically. Directives are validated before
// they are sent; an Edit must keep the types of the proposed arguments:
//
//	hitlclient.WithNegotiator(hitlclient.NegotiatorFunc(
//	    func(ctx context.Context, p *hitlclient.InterruptPayload) (hitlclient.Directive, error) {
//	        if p.ActionRequest.Action == "delete_file" {
//	            return &hitlclient.Reject{}, nil
//	        }
//	        return &hitlclient.Accept{}, nil
//	    }))
//
// # Recovery
//
// The backend's status is authoritative. Before submitting, and after any
// transport fault, the client reconciles the session: a pending interrupt is
// answered instead of re-issuing the query, a finished turn is reported, and
// a session busy elsewhere is polled (30 times, one second apart, by
// default) before a fresh query starts.
//
// # Logging
//
// For detailed operation tracking, use WithLogger:
//
//	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
//	result, err := hitlclient.Query(ctx, "Hello",
//	    hitlclient.WithLogger(logger),
//	    hitlclient.WithNegotiator(hitlclient.AcceptAll()),
//	)
//
// # Error Handling
//
// A failure reported by the agent is a result, not an error. Errors mean the
// client could not finish the turn:
//
//	result, err := client.Query(ctx, prompt)
//	if err != nil {
//	    if transportErr, ok := errors.AsType[*hitlclient.TransportError](err); ok {
//	        log.Fatalf("backend call %s failed with status %d", transportErr.Op, transportErr.StatusCode)
//	    }
//	    if errors.Is(err, hitlclient.ErrBackendUnavailable) {
//	        log.Fatal("backend is down, try again later")
//	    }
//	    log.Fatal(err)
//	}
package hitlclient
