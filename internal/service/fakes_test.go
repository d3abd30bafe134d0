package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/noah-isme/biblioteca-api/internal/models"
	"github.com/noah-isme/biblioteca-api/internal/repository"
)

type memState struct {
	books     map[string]models.Book
	students  map[string]models.Student
	loans     map[string]models.Loan
	history   map[string]models.HistoricalRecord
	sanctions map[string]models.Sanction
}

func (s memState) clone() memState {
	c := memState{
		books:     make(map[string]models.Book, len(s.books)),
		students:  make(map[string]models.Student, len(s.students)),
		loans:     make(map[string]models.Loan, len(s.loans)),
		history:   make(map[string]models.HistoricalRecord, len(s.history)),
		sanctions: make(map[string]models.Sanction, len(s.sanctions)),
	}
	for k, v := range s.books {
		c.books[k] = v
	}
	for k, v := range s.students {
		c.students[k] = v
	}
	for k, v := range s.loans {
		c.loans[k] = v
	}
	for k, v := range s.history {
		c.history[k] = v
	}
	for k, v := range s.sanctions {
		c.sanctions[k] = v
	}
	return c
}

// memStore is a transactional in-memory database. RunInTx serialises whole transactions behind one mutex
// and restores the snapshot taken at begin when fn fails, so a failed transaction leaves no trace.
// Serialising means concurrent tests here prove the checks run inside the transaction, not that row
// locks are taken; lock order is asserted through locks, and the FOR UPDATE clauses by the repository tests.
type memStore struct {
	mu    sync.Mutex
	state memState
	fail  map[string]func(arg string) error
	txs   int64
	locks []string
}

func newMemStore() *memStore {
	return &memStore{
		state: memState{
			books:     map[string]models.Book{},
			students:  map[string]models.Student{},
			loans:     map[string]models.Loan{},
			history:   map[string]models.HistoricalRecord{},
			sanctions: map[string]models.Sanction{},
		},
		fail: map[string]func(string) error{},
	}
}

func (m *memStore) RunInTx(ctx context.Context, fn func(ctx context.Context, q repository.DBTX) error) (err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	atomic.AddInt64(&m.txs, 1)
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	snapshot := m.state.clone()
	defer func() {
		if p := recover(); p != nil {
			m.state = snapshot
			panic(p)
		}
	}()
	if err = fn(ctx, nil); err != nil {
		m.state = snapshot
		return err
	}
	return nil
}

// lock records a row lock taken inside the running transaction, as "table:id".
func (m *memStore) lock(table, id string) {
	m.locks = append(m.locks, table+":"+id)
}

// lockLog returns the row locks recorded so far, in acquisition order.
func (m *memStore) lockLog() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.locks...)
}

func (m *memStore) injected(op, arg string) error {
	if f, ok := m.fail[op]; ok {
		return f(arg)
	}
	return nil
}

// snapshot returns a copy of the committed state.
func (m *memStore) snapshot() memState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

func (m *memStore) addBook(id string, status models.BookStatus) {
	m.state.books[id] = models.Book{ID: id, Title: "Book " + id, PublicationYear: "1999", Status: status}
}

func (m *memStore) addStudent(id string) {
	m.state.students[id] = models.Student{ID: id, Name: "Student " + id, Semester: 3, CareerID: "career-1"}
}

type memBooks struct{ *memStore }

func (b memBooks) LockByID(_ context.Context, _ repository.DBTX, id string) (*models.Book, error) {
	b.lock("books", id)
	if err := b.injected("books.lock", id); err != nil {
		return nil, err
	}
	book, ok := b.state.books[id]
	if !ok {
		return nil, nil
	}
	return &book, nil
}

func (b memBooks) UpdateStatus(_ context.Context, _ repository.DBTX, id string, status models.BookStatus) error {
	b.lock("books", id)
	if err := b.injected("books.update", id); err != nil {
		return err
	}
	book, ok := b.state.books[id]
	if !ok {
		return fmt.Errorf("update book status: book %s not found", id)
	}
	book.Status = status
	b.state.books[id] = book
	return nil
}

type memStudents struct{ *memStore }

func (s memStudents) LockByID(_ context.Context, _ repository.DBTX, id string) (*models.Student, error) {
	s.lock("students", id)
	if err := s.injected("students.lock", id); err != nil {
		return nil, err
	}
	student, ok := s.state.students[id]
	if !ok {
		return nil, nil
	}
	return &student, nil
}

type memLoans struct{ *memStore }

func (l memLoans) Create(_ context.Context, _ repository.DBTX, loan *models.Loan) error {
	if err := l.injected("loans.create", loan.BookID); err != nil {
		return err
	}
	l.state.loans[loan.ID] = *loan
	return nil
}

func (l memLoans) FindByID(_ context.Context, id string) (*models.Loan, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	loan, ok := l.state.loans[id]
	if !ok {
		return nil, nil
	}
	return &loan, nil
}

func (l memLoans) LockByID(_ context.Context, _ repository.DBTX, id string) (*models.Loan, error) {
	l.lock("loans", id)
	loan, ok := l.state.loans[id]
	if !ok {
		return nil, nil
	}
	return &loan, nil
}

func (l memLoans) CountActiveByStudent(_ context.Context, _ repository.DBTX, studentID string) (int, error) {
	count := 0
	for _, loan := range l.state.loans {
		if loan.StudentID == studentID && loan.Status == models.LoanStatusActive {
			count++
		}
	}
	return count, nil
}

func (l memLoans) MarkReturned(_ context.Context, _ repository.DBTX, id string, returnDate time.Time) (bool, error) {
	loan, ok := l.state.loans[id]
	if !ok || loan.Status != models.LoanStatusActive {
		return false, nil
	}
	loan.Status = models.LoanStatusReturned
	d := returnDate
	loan.ReturnDate = &d
	l.state.loans[id] = loan
	return true, nil
}

func (l memLoans) ListActiveByStudent(_ context.Context, studentID string) ([]models.Loan, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []models.Loan
	for _, loan := range l.state.loans {
		if loan.StudentID == studentID && loan.Status == models.LoanStatusActive {
			out = append(out, loan)
		}
	}
	return out, nil
}

func (l memLoans) ListOverdue(_ context.Context, cutoff time.Time) ([]models.OverdueLoan, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.injected("loans.overdue", ""); err != nil {
		return nil, err
	}
	var out []models.OverdueLoan
	for _, loan := range l.state.loans {
		if loan.Status == models.LoanStatusActive && loan.LoanDate.Before(cutoff) {
			out = append(out, models.OverdueLoan{LoanID: loan.ID, StudentID: loan.StudentID, BookID: loan.BookID, LoanDate: loan.LoanDate})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StudentID != out[j].StudentID {
			return out[i].StudentID < out[j].StudentID
		}
		return out[i].LoanDate.Before(out[j].LoanDate)
	})
	return out, nil
}

type memHistory struct{ *memStore }

func (h memHistory) Insert(_ context.Context, _ repository.DBTX, rec *models.HistoricalRecord) error {
	if err := h.injected("history.insert", rec.BookID); err != nil {
		return err
	}
	h.state.history[rec.ID] = *rec
	return nil
}

func (h memHistory) ListOpenForUpdate(_ context.Context, _ repository.DBTX, studentID, bookID string) ([]models.HistoricalRecord, error) {
	var out []models.HistoricalRecord
	for _, rec := range h.state.history {
		if rec.StudentID == studentID && rec.BookID == bookID && rec.ReturnDate == nil {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LoanDate.Equal(out[j].LoanDate) {
			return out[i].LoanDate.After(out[j].LoanDate)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (h memHistory) SetReturnDate(_ context.Context, _ repository.DBTX, id string, returnDate time.Time) error {
	if err := h.injected("history.close", id); err != nil {
		return err
	}
	rec, ok := h.state.history[id]
	if !ok || rec.ReturnDate != nil {
		return fmt.Errorf("close historical record: %s already closed", id)
	}
	d := returnDate
	rec.ReturnDate = &d
	h.state.history[id] = rec
	return nil
}

func (h memHistory) ListByStudent(_ context.Context, studentID string) ([]models.HistoricalRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []models.HistoricalRecord
	for _, rec := range h.state.history {
		if rec.StudentID == studentID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (h memHistory) ListByBook(_ context.Context, bookID string) ([]models.HistoricalRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []models.HistoricalRecord
	for _, rec := range h.state.history {
		if rec.BookID == bookID {
			out = append(out, rec)
		}
	}
	return out, nil
}

type memSanctions struct{ *memStore }

func (s memSanctions) FindOpen(_ context.Context, _ repository.DBTX, studentID, reason string, asOf time.Time) (*models.Sanction, error) {
	for _, sn := range s.state.sanctions {
		if sn.StudentID == studentID && sn.Reason == reason && sn.OpenAt(asOf) {
			found := sn
			return &found, nil
		}
	}
	return nil, nil
}

func (s memSanctions) Create(_ context.Context, _ repository.DBTX, sn *models.Sanction) error {
	if err := s.injected("sanctions.create", sn.StudentID); err != nil {
		return err
	}
	s.state.sanctions[sn.ID] = *sn
	return nil
}

func (s memSanctions) LockByID(_ context.Context, _ repository.DBTX, id string) (*models.Sanction, error) {
	sn, ok := s.state.sanctions[id]
	if !ok {
		return nil, nil
	}
	return &sn, nil
}

func (s memSanctions) Lift(_ context.Context, _ repository.DBTX, id string, endDate time.Time) error {
	sn, ok := s.state.sanctions[id]
	if !ok || sn.EndDate != nil {
		return fmt.Errorf("lift sanction: %s already lifted", id)
	}
	d := endDate
	sn.EndDate = &d
	s.state.sanctions[id] = sn
	return nil
}

func (s memSanctions) ListOpenByStudent(_ context.Context, studentID string, asOf time.Time) ([]models.Sanction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Sanction
	for _, sn := range s.state.sanctions {
		if sn.StudentID == studentID && sn.OpenAt(asOf) {
			out = append(out, sn)
		}
	}
	return out, nil
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type seqIDs struct {
	prefix string
	n      int64
}

func (g *seqIDs) NewID() string {
	return fmt.Sprintf("%s-%03d", g.prefix, atomic.AddInt64(&g.n, 1))
}

type countingInvalidator struct{ calls int64 }

func (c *countingInvalidator) InvalidateCache(context.Context) { atomic.AddInt64(&c.calls, 1) }

func day(s string) time.Time {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}
