// Package ownership implements the partition load-balancing algorithm.
//
// Every processor instance runs the same algorithm independently and
// periodically, using the shared checkpoint store as the only coordination
// point. There is no leader election and no direct inter-instance
// communication: balance emerges because each round moves an instance's
// ownership by at most one partition, so a fleet converges gradually
// without thundering-herd reclaims when many instances start at once.
package ownership

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/hubflow/eventproc/internal/metrics"
	"github.com/hubflow/eventproc/types"
)

// PartitionIDLister is the slice of the transport surface the balancer
// needs: partition enumeration only.
type PartitionIDLister interface {
	GetPartitionIDs(ctx context.Context) ([]string, error)
}

// Manager decides, once per balancing round, which partitions its processor
// instance should hold, and attempts to claim them through the store.
type Manager struct {
	transport     PartitionIDLister
	store         types.CheckpointStore
	eventHubName  string
	consumerGroup string
	ownerID       string

	ownershipTimeout time.Duration

	// partitionIDs is fetched from the transport once and then reused.
	// Partitions added to the event hub after the first round are never
	// discovered; restart the processor to pick them up.
	partitionIDs []string

	rng     *rand.Rand
	logger  types.Logger
	metrics types.OwnershipMetrics
}

// New creates a balancing manager bound to one processor instance.
//
// Parameters:
//   - transport: Source of partition ids (fetched lazily, once)
//   - store: Checkpoint store holding ownership records
//   - eventHubName: Event hub to balance
//   - consumerGroup: Consumer group scope
//   - ownerID: Identity of the owning processor instance
//   - ownershipTimeout: Freshness window for ownership records
//   - logger: Logger for round diagnostics
func New(transport PartitionIDLister, store types.CheckpointStore, eventHubName, consumerGroup, ownerID string, ownershipTimeout time.Duration, logger types.Logger) *Manager {
	return &Manager{
		transport:        transport,
		store:            store,
		eventHubName:     eventHubName,
		consumerGroup:    consumerGroup,
		ownerID:          ownerID,
		ownershipTimeout: ownershipTimeout,
		rng:              rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		logger:           logger,
		metrics:          metrics.NewNop(),
	}
}

// SetRand replaces the random source used for tie-breaking.
//
// Claim and steal targets are picked uniformly at random among equally
// eligible candidates; tests seed this for reproducible convergence.
func (m *Manager) SetRand(rng *rand.Rand) {
	m.rng = rng
}

// SetMetrics replaces the default no-op ownership metrics sink.
func (m *Manager) SetMetrics(mc types.OwnershipMetrics) {
	m.metrics = mc
}

// SetPartitionIDs pre-populates the partition id cache, bypassing transport
// discovery. Used for single-partition consumption.
func (m *Manager) SetPartitionIDs(ids []string) {
	m.partitionIDs = ids
}

// OwnerID returns the identity this manager claims partitions as.
func (m *Manager) OwnerID() string {
	return m.ownerID
}

// ClaimOwnership runs one balancing round: computes the target record set
// for this instance and asks the store to claim it.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//
// Returns:
//   - []types.Ownership: Records the store confirmed (may be fewer than
//     requested, or nil when the instance has nothing to claim)
//   - error: Transport or store failure; the round is simply retried on
//     the next interval
func (m *Manager) ClaimOwnership(ctx context.Context) ([]types.Ownership, error) {
	start := time.Now()

	if len(m.partitionIDs) == 0 {
		ids, err := m.transport.GetPartitionIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get partition ids: %w", err)
		}
		m.partitionIDs = ids
	}

	toClaim, err := m.balanceOwnership(ctx, m.partitionIDs)
	if err != nil {
		return nil, err
	}
	if len(toClaim) == 0 {
		m.metrics.RecordClaimRound(0, 0, time.Since(start).Seconds())

		return nil, nil
	}

	claimed, err := m.store.ClaimOwnership(ctx, toClaim)
	if err != nil {
		return nil, fmt.Errorf("failed to claim ownership: %w", err)
	}

	m.metrics.RecordClaimRound(len(toClaim), len(claimed), time.Since(start).Seconds())
	m.logger.Debug("balancing round complete",
		"owner_id", m.ownerID,
		"requested", len(toClaim),
		"claimed", len(claimed),
	)

	return claimed, nil
}

// balanceOwnership computes the records this instance should hold or
// refresh this round: its currently active ownership plus at most one
// incremental change (claim, steal, or abandon).
func (m *Manager) balanceOwnership(ctx context.Context, allIDs []string) ([]types.Ownership, error) {
	records, err := m.store.ListOwnership(ctx, m.eventHubName, m.consumerGroup)
	if err != nil {
		return nil, fmt.Errorf("failed to list ownership: %w", err)
	}

	now := time.Now()

	// Split the partition space into claimable records (unowned or
	// expired) and active ones, grouped by owner.
	byPartition := make(map[string]types.Ownership, len(records))
	for _, rec := range records {
		byPartition[rec.PartitionID] = rec
	}

	var claimable []types.Ownership
	activeByOwner := make(map[string][]types.Ownership)

	for _, id := range allIDs {
		rec, ok := byPartition[id]
		if !ok {
			claimable = append(claimable, types.Ownership{
				EventHubName:  m.eventHubName,
				ConsumerGroup: m.consumerGroup,
				PartitionID:   id,
				OwnerID:       m.ownerID,
			})

			continue
		}

		if rec.Active(m.ownershipTimeout, now) {
			activeByOwner[rec.OwnerID] = append(activeByOwner[rec.OwnerID], rec)
		} else {
			rec.OwnerID = m.ownerID
			claimable = append(claimable, rec)
		}
	}

	ownersCount := len(activeByOwner)
	if _, ok := activeByOwner[m.ownerID]; !ok {
		ownersCount++
	}

	expectedPerOwner := len(allIDs) / ownersCount
	mostAllowedPerOwner := (len(allIDs) + ownersCount - 1) / ownersCount

	selfActive := activeByOwner[m.ownerID]
	toClaim := make([]types.Ownership, len(selfActive))
	copy(toClaim, selfActive)

	switch {
	case len(selfActive) > mostAllowedPerOwner:
		// Over fair share: abandon one partition so another instance can
		// pick it up next round.
		drop := m.rng.IntN(len(toClaim))
		m.logger.Debug("abandoning partition over fair share",
			"owner_id", m.ownerID,
			"partition_id", toClaim[drop].PartitionID,
			"owned", len(selfActive),
			"max_allowed", mostAllowedPerOwner,
		)
		toClaim[drop] = toClaim[len(toClaim)-1]
		toClaim = toClaim[:len(toClaim)-1]

	case len(selfActive) < expectedPerOwner:
		if len(claimable) > 0 {
			pick := claimable[m.rng.IntN(len(claimable))]
			toClaim = append(toClaim, pick)
		} else if victim, ok := m.mostLoadedOwner(activeByOwner); ok {
			// Nothing unowned or expired: steal one partition from the
			// most-loaded owner.
			candidates := activeByOwner[victim]
			pick := candidates[m.rng.IntN(len(candidates))]
			pick.OwnerID = m.ownerID
			toClaim = append(toClaim, pick)
			m.metrics.RecordOwnershipSteal(victim)
			m.logger.Debug("stealing partition",
				"owner_id", m.ownerID,
				"partition_id", pick.PartitionID,
				"from_owner", victim,
			)
		}

	default:
		// Within fair share: just refresh what we hold.
	}

	return toClaim, nil
}

// mostLoadedOwner returns the owner holding the most active partitions,
// excluding this instance. Ties break by map iteration order, which is
// intentionally nondeterministic.
func (m *Manager) mostLoadedOwner(activeByOwner map[string][]types.Ownership) (string, bool) {
	best := ""
	bestCount := 0
	for owner, recs := range activeByOwner {
		if owner == m.ownerID {
			continue
		}
		if len(recs) > bestCount {
			best = owner
			bestCount = len(recs)
		}
	}

	return best, bestCount > 0
}
