package observability

import "github.com/prometheus/client_golang/prometheus"

// Domain counters. Labels are fixed small enums to keep cardinality bounded;
// post and member ids are never used as labels.
var (
	// NumbersAssigned counts first-time anonymous number assignments.
	NumbersAssigned = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "board_anonymous_numbers_assigned_total",
		Help: "Anonymous numbers newly assigned to a member on a post.",
	})

	// NumberingConflicts counts transaction attempts rolled back and retried
	// because of a unique-index race or a busy store.
	NumberingConflicts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "board_numbering_conflicts_total",
		Help: "Conflicting write transactions that were retried.",
	})

	// CommentsWritten counts successful comment inserts by kind (root|reply).
	CommentsWritten = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "board_comments_written_total",
		Help: "Comments written, by kind.",
	}, []string{"kind"})

	// CommentsDeleted counts hard deletes.
	CommentsDeleted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "board_comments_deleted_total",
		Help: "Comments deleted by their owner.",
	})

	// Logins counts login attempts by outcome
	// (created|existing|mismatch|role_missing|error).
	Logins = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "board_logins_total",
		Help: "Login attempts, by outcome.",
	}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(NumbersAssigned, NumberingConflicts, CommentsWritten, CommentsDeleted, Logins)
}
