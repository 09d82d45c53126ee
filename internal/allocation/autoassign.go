package allocation

import "github.com/iliyamo/retreat-allocation/internal/model"

// Assignment is one planned hall seat change.  Participant is an updated
// copy of the snapshot record ready to be written back.
type Assignment struct {
	Participant model.Participant
	From        string
	To          string
}

// WingReport summarizes the run for one wing.
type WingReport struct {
	Wing             model.Gender `json:"wing"`
	LayoutSeats      int          `json:"layout_seats"`
	Locked           int          `json:"locked"`
	Candidates       int          `json:"candidates"`
	SpecialRequested int          `json:"special_requested"`
	SpecialFree      int          `json:"special_free"`
	StandardFree     int          `json:"standard_free"`
	Assigned         int          `json:"assigned"`
	Overflow         []uint64     `json:"overflow"`
}

// Plan is the result of PlanHallSeating.  It is a pure value; nothing has
// been written when it is returned.
type Plan struct {
	Changes    []Assignment
	Wings      []WingReport
	Collisions []Collision
}

// SeatsAvailable returns the number of free seats the run could hand out.
func (p Plan) SeatsAvailable() int {
	n := 0
	for _, w := range p.Wings {
		n += w.SpecialFree + w.StandardFree
	}
	return n
}

// NoSeats reports that the seating configuration generated no seat at all,
// which is what a malformed configuration degrades to.
func (p Plan) NoSeats() bool {
	for _, w := range p.Wings {
		if w.LayoutSeats > 0 {
			return false
		}
	}
	return true
}

// eligibleForAuto reports whether p takes part in automatic hall seating
// at all: attending, not a server and with a known wing.
func eligibleForAuto(p *model.Participant) bool {
	if p.Status != model.StatusAttending || IsServer(p.ConfNo) {
		return false
	}
	return p.Gender == model.GenderMale || p.Gender == model.GenderFemale
}

// lockedSeat reports whether p keeps its seat regardless of the run.
func lockedSeat(p *model.Participant) bool {
	return p.IsSeatLocked && NormalizeLabel(p.HallSeatNo) != ""
}

// PlanHallSeating computes the hall seat assignment for every attending,
// non-server participant of the snapshot.
//
// Seats held by a locked participant, or by anybody who does not take part
// in the run, are never handed out.  Within each wing the movable
// participants are ordered by priority; special requests draw from the
// chowky sequence first and their leftovers queue ahead of the standard
// group.  Participants left without a seat keep their current label unless
// it was handed to someone else.
func PlanHallSeating(participants []model.Participant, cfg model.SeatingConfig) Plan {
	movable := make(map[*model.Participant]bool)
	for i := range participants {
		p := &participants[i]
		if eligibleForAuto(p) && !lockedSeat(p) {
			movable[p] = true
		}
	}
	fixed := buildIndex(participants, model.PoolHallSeat, func(p *model.Participant) bool { return movable[p] })
	claimed := make(map[string]struct{})

	plan := Plan{Collisions: fixed.Collisions()}
	for _, wing := range model.Genders {
		var movers []*model.Participant
		report := WingReport{Wing: wing, Overflow: []uint64{}}
		for i := range participants {
			p := &participants[i]
			if p.Gender != wing || !eligibleForAuto(p) {
				continue
			}
			if movable[p] {
				movers = append(movers, p)
			} else {
				report.Locked++
			}
		}
		report.Candidates = len(movers)

		layout := LayoutFor(cfg.Wing(wing))
		report.LayoutSeats = len(layout.Standard) + len(layout.Special)
		special := freeSeats(layout.Special, fixed, claimed)
		standard := freeSeats(layout.Standard, fixed, claimed)
		report.SpecialFree, report.StandardFree = len(special), len(standard)

		SortByPriority(movers)
		var specials, regular []*model.Participant
		for _, p := range movers {
			if p.SpecialSeating.Special() {
				specials = append(specials, p)
			} else {
				regular = append(regular, p)
			}
		}
		report.SpecialRequested = len(specials)

		target := make(map[*model.Participant]string, len(movers))
		n := min(len(specials), len(special))
		for i := 0; i < n; i++ {
			target[specials[i]] = special[i]
		}
		queue := append(append([]*model.Participant{}, specials[n:]...), regular...)
		var overflow []*model.Participant
		for i, p := range queue {
			if i < len(standard) {
				target[p] = standard[i]
			} else {
				overflow = append(overflow, p)
			}
		}
		for _, seat := range target {
			claimed[NormalizeLabel(seat)] = struct{}{}
		}
		report.Assigned = len(target)

		for _, p := range overflow {
			report.Overflow = append(report.Overflow, p.ID)
			key := NormalizeLabel(p.HallSeatNo)
			if key == "" {
				continue
			}
			_, taken := claimed[key]
			if taken || fixed.Occupied(key) {
				target[p] = ""
				continue
			}
			claimed[key] = struct{}{}
		}

		for _, p := range movers {
			to, ok := target[p]
			if !ok || SameLabel(to, p.HallSeatNo) {
				continue
			}
			updated := *p
			updated.HallSeatNo = to
			plan.Changes = append(plan.Changes, Assignment{Participant: updated, From: p.HallSeatNo, To: to})
		}
		plan.Wings = append(plan.Wings, report)
	}
	return plan
}

// freeSeats filters seq down to labels neither held in fixed nor already
// handed out earlier in the run.
func freeSeats(seq []string, fixed *Index, claimed map[string]struct{}) []string {
	out := make([]string, 0, len(seq))
	for _, l := range Available(seq, fixed) {
		if _, ok := claimed[NormalizeLabel(l)]; ok {
			continue
		}
		out = append(out, l)
	}
	return out
}
