package domain

import (
	"sort"
)

// EntityKind names one of the four ledger containers.
type EntityKind string

const (
	KindAccount     EntityKind = "account"
	KindCard        EntityKind = "card"
	KindGoal        EntityKind = "goal"
	KindTransaction EntityKind = "transaction"
)

// Kinds lists the containers in persistence order.
var Kinds = []EntityKind{KindAccount, KindCard, KindGoal, KindTransaction}

// Change records that an entity was written or removed since the ledger
// was loaded.
type Change struct {
	Kind    EntityKind
	ID      string
	Deleted bool
}

// Ledger is the in-memory snapshot of one owner's accounts, cards, goals
// and transactions. Stores load a Ledger, hand it to a mutation function
// and persist Changes() when the function succeeds.
//
// Accounts, cards and goals are kept in creation order. Transactions are
// kept most-recent-first.
type Ledger struct {
	Owner string

	// Version is incremented by the store on every committed update.
	Version int64

	accounts     []*Account
	cards        []*CreditCard
	goals        []*Goal
	transactions []*Transaction

	nextSeq int64
	dirty   map[EntityKind]map[string]struct{}
}

// NewLedger builds a snapshot from persisted records. Records may arrive
// in any order; they are sorted by Seq.
func NewLedger(owner string, version int64, accounts []*Account, cards []*CreditCard, goals []*Goal, transactions []*Transaction) *Ledger {
	l := &Ledger{
		Owner:        owner,
		Version:      version,
		accounts:     accounts,
		cards:        cards,
		goals:        goals,
		transactions: transactions,
	}

	sort.SliceStable(l.accounts, func(i, j int) bool { return l.accounts[i].Seq < l.accounts[j].Seq })
	sort.SliceStable(l.cards, func(i, j int) bool { return l.cards[i].Seq < l.cards[j].Seq })
	sort.SliceStable(l.goals, func(i, j int) bool { return l.goals[i].Seq < l.goals[j].Seq })
	sort.SliceStable(l.transactions, func(i, j int) bool { return l.transactions[i].Seq > l.transactions[j].Seq })

	for _, a := range l.accounts {
		l.observeSeq(a.Seq)
	}
	for _, c := range l.cards {
		l.observeSeq(c.Seq)
	}
	for _, g := range l.goals {
		l.observeSeq(g.Seq)
	}
	for _, t := range l.transactions {
		l.observeSeq(t.Seq)
	}

	return l
}

// EmptyLedger returns a ledger with no records.
func EmptyLedger(owner string) *Ledger {
	return NewLedger(owner, 0, nil, nil, nil, nil)
}

func (l *Ledger) observeSeq(seq int64) {
	if seq >= l.nextSeq {
		l.nextSeq = seq + 1
	}
}

func (l *Ledger) assignSeq(seq *int64) {
	if *seq == 0 {
		if l.nextSeq == 0 {
			l.nextSeq = 1
		}
		*seq = l.nextSeq
	}
	l.observeSeq(*seq)
}

func (l *Ledger) markDirty(kind EntityKind, id string) {
	if l.dirty == nil {
		l.dirty = make(map[EntityKind]map[string]struct{})
	}
	if l.dirty[kind] == nil {
		l.dirty[kind] = make(map[string]struct{})
	}
	l.dirty[kind][id] = struct{}{}
}

// Accounts returns the accounts in creation order.
func (l *Ledger) Accounts() []*Account { return l.accounts }

// Cards returns the credit cards in creation order.
func (l *Ledger) Cards() []*CreditCard { return l.cards }

// Goals returns the goals in creation order.
func (l *Ledger) Goals() []*Goal { return l.goals }

// Transactions returns the transactions, most recent first.
func (l *Ledger) Transactions() []*Transaction { return l.transactions }

// Account looks up an account by id. The returned pointer is live: call
// PutAccount after mutating it.
func (l *Ledger) Account(id string) (*Account, bool) {
	for _, a := range l.accounts {
		if a.ID == id {
			return a, true
		}
	}
	return nil, false
}

// Card looks up a credit card by id.
func (l *Ledger) Card(id string) (*CreditCard, bool) {
	for _, c := range l.cards {
		if c.ID == id {
			return c, true
		}
	}
	return nil, false
}

// Goal looks up a goal by id.
func (l *Ledger) Goal(id string) (*Goal, bool) {
	for _, g := range l.goals {
		if g.ID == id {
			return g, true
		}
	}
	return nil, false
}

// Transaction looks up a transaction by id.
func (l *Ledger) Transaction(id string) (*Transaction, bool) {
	for _, t := range l.transactions {
		if t.ID == id {
			return t, true
		}
	}
	return nil, false
}

// PutAccount inserts a new account at the end or replaces the one with
// the same id in place.
func (l *Ledger) PutAccount(a *Account) {
	a.Owner = l.Owner
	l.markDirty(KindAccount, a.ID)
	for i, cur := range l.accounts {
		if cur.ID == a.ID {
			a.Seq = cur.Seq
			l.accounts[i] = a
			return
		}
	}
	l.assignSeq(&a.Seq)
	l.accounts = append(l.accounts, a)
}

// PutCard inserts or replaces a credit card.
func (l *Ledger) PutCard(c *CreditCard) {
	c.Owner = l.Owner
	l.markDirty(KindCard, c.ID)
	for i, cur := range l.cards {
		if cur.ID == c.ID {
			c.Seq = cur.Seq
			l.cards[i] = c
			return
		}
	}
	l.assignSeq(&c.Seq)
	l.cards = append(l.cards, c)
}

// PutGoal inserts or replaces a goal.
func (l *Ledger) PutGoal(g *Goal) {
	g.Owner = l.Owner
	l.markDirty(KindGoal, g.ID)
	for i, cur := range l.goals {
		if cur.ID == g.ID {
			g.Seq = cur.Seq
			l.goals[i] = g
			return
		}
	}
	l.assignSeq(&g.Seq)
	l.goals = append(l.goals, g)
}

// PutTransaction replaces an existing transaction in place, or prepends a
// new one. A new transaction that already carries a Seq (restored from a
// backup) is placed by that Seq instead.
func (l *Ledger) PutTransaction(t *Transaction) {
	t.Owner = l.Owner
	l.markDirty(KindTransaction, t.ID)
	for i, cur := range l.transactions {
		if cur.ID == t.ID {
			t.Seq = cur.Seq
			l.transactions[i] = t
			return
		}
	}
	if t.Seq != 0 {
		l.observeSeq(t.Seq)
		idx := sort.Search(len(l.transactions), func(i int) bool { return l.transactions[i].Seq < t.Seq })
		l.transactions = append(l.transactions, nil)
		copy(l.transactions[idx+1:], l.transactions[idx:])
		l.transactions[idx] = t
		return
	}
	l.assignSeq(&t.Seq)
	l.transactions = append([]*Transaction{t}, l.transactions...)
}

// RemoveAccount deletes an account. It reports whether it existed.
func (l *Ledger) RemoveAccount(id string) bool {
	for i, a := range l.accounts {
		if a.ID == id {
			l.accounts = append(l.accounts[:i], l.accounts[i+1:]...)
			l.markDirty(KindAccount, id)
			return true
		}
	}
	return false
}

// RemoveCard deletes a credit card.
func (l *Ledger) RemoveCard(id string) bool {
	for i, c := range l.cards {
		if c.ID == id {
			l.cards = append(l.cards[:i], l.cards[i+1:]...)
			l.markDirty(KindCard, id)
			return true
		}
	}
	return false
}

// RemoveGoal deletes a goal.
func (l *Ledger) RemoveGoal(id string) bool {
	for i, g := range l.goals {
		if g.ID == id {
			l.goals = append(l.goals[:i], l.goals[i+1:]...)
			l.markDirty(KindGoal, id)
			return true
		}
	}
	return false
}

// RemoveTransaction deletes a transaction.
func (l *Ledger) RemoveTransaction(id string) bool {
	for i, t := range l.transactions {
		if t.ID == id {
			l.transactions = append(l.transactions[:i], l.transactions[i+1:]...)
			l.markDirty(KindTransaction, id)
			return true
		}
	}
	return false
}

// Clear removes every record, keeping the owner and version.
func (l *Ledger) Clear() {
	for _, a := range l.accounts {
		l.markDirty(KindAccount, a.ID)
	}
	for _, c := range l.cards {
		l.markDirty(KindCard, c.ID)
	}
	for _, g := range l.goals {
		l.markDirty(KindGoal, g.ID)
	}
	for _, t := range l.transactions {
		l.markDirty(KindTransaction, t.ID)
	}
	l.accounts, l.cards, l.goals, l.transactions = nil, nil, nil, nil
	l.nextSeq = 0
}

// Exists reports whether an entity of the given kind is present.
func (l *Ledger) Exists(kind EntityKind, id string) bool {
	var ok bool
	switch kind {
	case KindAccount:
		_, ok = l.Account(id)
	case KindCard:
		_, ok = l.Card(id)
	case KindGoal:
		_, ok = l.Goal(id)
	case KindTransaction:
		_, ok = l.Transaction(id)
	}
	return ok
}

// Changes lists every entity touched since the ledger was loaded, in
// container order and then by id. An entity touched and then removed is
// reported as Deleted.
func (l *Ledger) Changes() []Change {
	var out []Change
	for _, kind := range Kinds {
		ids := make([]string, 0, len(l.dirty[kind]))
		for id := range l.dirty[kind] {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			out = append(out, Change{Kind: kind, ID: id, Deleted: !l.Exists(kind, id)})
		}
	}
	return out
}

// HasChanges reports whether anything was written or removed.
func (l *Ledger) HasChanges() bool {
	for _, ids := range l.dirty {
		if len(ids) > 0 {
			return true
		}
	}
	return false
}

// ResetChanges forgets the tracked changes, typically after a commit.
func (l *Ledger) ResetChanges() {
	l.dirty = nil
}

// Clone returns a deep copy of the ledger, including pending changes.
func (l *Ledger) Clone() *Ledger {
	c := &Ledger{
		Owner:   l.Owner,
		Version: l.Version,
		nextSeq: l.nextSeq,
	}
	for _, a := range l.accounts {
		c.accounts = append(c.accounts, a.Clone())
	}
	for _, cd := range l.cards {
		c.cards = append(c.cards, cd.Clone())
	}
	for _, g := range l.goals {
		c.goals = append(c.goals, g.Clone())
	}
	for _, t := range l.transactions {
		c.transactions = append(c.transactions, t.Clone())
	}
	for kind, ids := range l.dirty {
		for id := range ids {
			c.markDirty(kind, id)
		}
	}
	return c
}
