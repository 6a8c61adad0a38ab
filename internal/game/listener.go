package game

// Listener receives discrete game notifications. Each method is called
// exactly once per underlying event, in the order the events occur, and
// never while the engine lock is held.
type Listener interface {
	OnHit(HitResult)
	OnMiss(Arrow)
	OnComboChange(combo, multiplier int)
	OnGameEnd(Stats)
}

// NopListener ignores every notification.
type NopListener struct{}

func (NopListener) OnHit(HitResult)        {}
func (NopListener) OnMiss(Arrow)           {}
func (NopListener) OnComboChange(int, int) {}
func (NopListener) OnGameEnd(Stats)        {}

// notification is a queued listener call.
type notification func(Listener)

func hitNote(r HitResult) notification {
	return func(l Listener) { l.OnHit(r) }
}

func missNote(a Arrow) notification {
	return func(l Listener) { l.OnMiss(a) }
}

func comboNote(combo int) notification {
	m := Multiplier(combo)
	return func(l Listener) { l.OnComboChange(combo, m) }
}

func endNote(s Stats) notification {
	return func(l Listener) { l.OnGameEnd(s) }
}

// Listeners fans notifications out to several listeners in order.
type Listeners []Listener

func (ls Listeners) OnHit(r HitResult) {
	for _, l := range ls {
		l.OnHit(r)
	}
}

func (ls Listeners) OnMiss(a Arrow) {
	for _, l := range ls {
		l.OnMiss(a)
	}
}

func (ls Listeners) OnComboChange(combo, multiplier int) {
	for _, l := range ls {
		l.OnComboChange(combo, multiplier)
	}
}

func (ls Listeners) OnGameEnd(s Stats) {
	for _, l := range ls {
		l.OnGameEnd(s)
	}
}
