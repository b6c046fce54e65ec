package script

// Health tracks the player and opponent gauges of a confrontation. Both
// start at their initial values and only ever decrease by one per hit,
// never below zero.
type Health struct {
	player, opponent int
}

// NewHealth returns a Health with the given initial values. Negative
// values are treated as zero.
func NewHealth(player, opponent int) *Health {
	return &Health{player: max(player, 0), opponent: max(opponent, 0)}
}

// Player returns the player's remaining health.
func (h *Health) Player() int {
	if h == nil {
		return 0
	}
	return h.player
}

// Opponent returns the opponent's remaining health.
func (h *Health) Opponent() int {
	if h == nil {
		return 0
	}
	return h.opponent
}

// DamagePlayer removes one point from the player. It reports true only for
// the hit that takes the player from one to zero.
func (h *Health) DamagePlayer() bool {
	return hit(&h.player)
}

// DamageOpponent removes one point from the opponent. It reports true only
// for the hit that takes the opponent from one to zero.
func (h *Health) DamageOpponent() bool {
	return hit(&h.opponent)
}

func hit(v *int) bool {
	if *v == 0 {
		return false
	}
	*v--
	return *v == 0
}
