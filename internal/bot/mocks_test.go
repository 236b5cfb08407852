package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"stablearb/internal/models"
)

// fakeLedger - управляемая данными заглушка Reader/Submitter/Watcher
type fakeLedger struct {
	mu sync.Mutex

	params   map[string]map[string]interface{} // address -> params
	vars     map[string]map[string]json.RawMessage
	getters  map[string]json.RawMessage // "address/getter" -> result
	balances map[string]map[string]int64

	submitted  []fakeSubmission
	nextUnit   int
	submitErr  error
	refuseNext bool // следующая отправка возвращает пустой unit без ошибки

	watched []string
}

type fakeSubmission struct {
	ToAddress string
	Payload   map[string]interface{}
	Unit      string
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		params:   make(map[string]map[string]interface{}),
		vars:     make(map[string]map[string]json.RawMessage),
		getters:  make(map[string]json.RawMessage),
		balances: make(map[string]map[string]int64),
	}
}

func (f *fakeLedger) setVar(address, name string, value interface{}) {
	if f.vars[address] == nil {
		f.vars[address] = make(map[string]json.RawMessage)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		panic(err)
	}
	f.vars[address][name] = raw
}

func (f *fakeLedger) setGetter(address, getter string, value interface{}) {
	raw, err := json.Marshal(value)
	if err != nil {
		panic(err)
	}
	f.getters[address+"/"+getter] = raw
}

func (f *fakeLedger) ReadBalances(ctx context.Context, address string) (map[string]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	balances, ok := f.balances[address]
	if !ok {
		return nil, fmt.Errorf("no balances for %s", address)
	}
	out := make(map[string]int64, len(balances))
	for asset, amount := range balances {
		out[asset] = amount
	}
	return out, nil
}

func (f *fakeLedger) ReadStateVar(ctx context.Context, address, name string) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.vars[address][name]
	if !ok {
		return nil, nil
	}
	return raw, nil
}

func (f *fakeLedger) ReadStateVars(ctx context.Context, address, prefix string) (map[string]json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]json.RawMessage)
	for name, raw := range f.vars[address] {
		if strings.HasPrefix(name, prefix) {
			out[name] = raw
		}
	}
	return out, nil
}

func (f *fakeLedger) ReadParams(ctx context.Context, address string) (map[string]interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	params, ok := f.params[address]
	if !ok {
		return nil, fmt.Errorf("no params for %s", address)
	}
	return params, nil
}

func (f *fakeLedger) ExecuteGetter(ctx context.Context, address, getter string, args ...interface{}) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.getters[address+"/"+getter]
	if !ok {
		return nil, fmt.Errorf("no getter %s on %s", getter, address)
	}
	return raw, nil
}

func (f *fakeLedger) Submit(ctx context.Context, toAddress string, payload map[string]interface{}) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return "", f.submitErr
	}
	unit := ""
	if !f.refuseNext {
		f.nextUnit++
		unit = fmt.Sprintf("unit-%d", f.nextUnit)
	}
	f.refuseNext = false
	f.submitted = append(f.submitted, fakeSubmission{ToAddress: toAddress, Payload: payload, Unit: unit})
	return unit, nil
}

func (f *fakeLedger) Watch(address string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.watched = append(f.watched, address)
	return nil
}

func (f *fakeLedger) submissions() []fakeSubmission {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]fakeSubmission, len(f.submitted))
	copy(out, f.submitted)
	return out
}

// fakeNotifier накапливает уведомления
type fakeNotifier struct {
	mu            sync.Mutex
	notifications []string // type каждого уведомления
}

func (n *fakeNotifier) Notify(ctx context.Context, notif *models.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notifications = append(n.notifications, notif.Type)
}

func (n *fakeNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.notifications))
	copy(out, n.notifications)
	return out
}

// fakeJournal накапливает записи журнала действий
type fakeJournal struct {
	mu       sync.Mutex
	kinds    []string
	statuses map[string]string // unit -> status
}

func newFakeJournal() *fakeJournal {
	return &fakeJournal{statuses: make(map[string]string)}
}

func (j *fakeJournal) Record(ctx context.Context, a *models.ActionRecord) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.kinds = append(j.kinds, a.Kind)
	if a.Unit != "" {
		j.statuses[a.Unit] = a.Status
	}
}

func (j *fakeJournal) UpdateStatus(ctx context.Context, unit, status, errorMessage string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.statuses[unit] = status
}
