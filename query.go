package hitlclient

import (
	"context"
)

// Query runs a single query on a session and returns how it ended.
//
// The session is reconciled first: an interrupt left pending by an earlier
// run is negotiated and resumed before the query is submitted, and a session
// still busy elsewhere is waited on according to the poll policy.
//
// Every interrupt raised during the turn goes through the configured
// negotiator, so one of WithNegotiator or WithOperator is required.
//
// Example:
//
//	result, err := hitlclient.Query(ctx, "What's the weather in Beijing?",
//	    hitlclient.WithUserID("alice"),
//	    hitlclient.WithNegotiator(hitlclient.AcceptAll()),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := result.Err(); err != nil {
//	    log.Fatal(err) // backend-reported failure
//	}
//	fmt.Println(result.FinalMessage())
func Query(ctx context.Context, query string, opts ...Option) (*TurnResult, error) {
	var result *TurnResult

	err := WithClient(ctx, func(c Client) error {
		log := applyOptions(opts).Logger
		if log == nil {
			log = NopLogger()
		}

		log = log.With("component", "query")

		outcome, err := c.Reconcile(ctx)
		if err != nil {
			return err
		}

		log.Debug("Session reconciled", "kind", outcome.Kind, "session_id", c.SessionID())

		result, err = c.Query(ctx, query)

		return err
	}, opts...)
	if err != nil {
		return nil, err
	}

	return result, nil
}
