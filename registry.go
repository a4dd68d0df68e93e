package monitor

import (
	"fmt"
	"io/ioutil"
	"math/big"
	"sync"
	"time"

	"gopkg.in/yaml.v2"
)

// obligationGracePeriod is the time after which an unserviced obligation
// becomes due again.
const obligationGracePeriod = 30 * 24 * time.Hour

// ObligationSource provides the raw obligations document.
type ObligationSource interface {
	Read() ([]byte, error)
}

type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (fs *FileSource) Read() ([]byte, error) {
	return ioutil.ReadFile(fs.path)
}

type obligationDocument struct {
	Version     int                `yaml:"version"`
	Obligations []obligationRecord `yaml:"obligations"`
}

type obligationRecord struct {
	ID                 string           `yaml:"id"`
	Name               string           `yaml:"name"`
	Principal          float64          `yaml:"principal"`
	AnnualRate         float64          `yaml:"annualRate"`
	Start              string           `yaml:"start"`
	SettlementCurrency string           `yaml:"settlementCurrency"`
	Active             bool             `yaml:"active"`
	Recipient          *recipientRecord `yaml:"recipient"`
	Notes              string           `yaml:"notes"`
}

type recipientRecord struct {
	Kind  string `yaml:"kind"`
	Value string `yaml:"value"`
}

func (or *obligationRecord) unwrap() (*Obligation, error) {
	if or.Recipient == nil {
		return nil, fmt.Errorf(
			"obligation [%v] recipient object is required",
			or.ID,
		)
	}

	recipientKind, err := ParseRecipientKind(or.Recipient.Kind)
	if err != nil {
		return nil, fmt.Errorf(
			"obligation [%v] has invalid recipient: [%v]",
			or.ID,
			err,
		)
	}

	start, err := time.Parse(time.RFC3339, or.Start)
	if err != nil {
		return nil, fmt.Errorf(
			"obligation [%v] has unparseable start time [%v]: [%v]",
			or.ID,
			or.Start,
			err,
		)
	}

	obligation := &Obligation{
		ID:                 or.ID,
		Name:               or.Name,
		Principal:          big.NewFloat(or.Principal),
		AnnualRate:         big.NewFloat(or.AnnualRate),
		Start:              start,
		SettlementCurrency: Currency(or.SettlementCurrency),
		Active:             or.Active,
		Recipient: Recipient{
			Kind:  recipientKind,
			Value: or.Recipient.Value,
		},
		Notes: or.Notes,
	}

	if err := obligation.validate(); err != nil {
		return nil, err
	}

	return obligation, nil
}

// ObligationRegistry owns the lifecycle of obligation definitions. Loading
// is fail-closed: a single invalid obligation aborts the whole load and the
// previously loaded set stays active.
type ObligationRegistry struct {
	source            ObligationSource
	paymentRepository PaymentRepository
	logger            Logger

	obligationsMutex sync.RWMutex
	obligations      []*Obligation
}

func NewObligationRegistry(
	source ObligationSource,
	paymentRepository PaymentRepository,
	logger Logger,
) *ObligationRegistry {
	return &ObligationRegistry{
		source:            source,
		paymentRepository: paymentRepository,
		logger:            logger,
		obligations:       make([]*Obligation, 0),
	}
}

// Load reads and validates the obligations document. On failure the
// previous in-memory set remains active and the error is returned for the
// caller to log or surface.
func (or *ObligationRegistry) Load() error {
	documentBytes, err := or.source.Read()
	if err != nil {
		return fmt.Errorf("could not read obligations document: [%v]", err)
	}

	var document obligationDocument
	if err := yaml.Unmarshal(documentBytes, &document); err != nil {
		return fmt.Errorf(
			"could not parse obligations document: [%v]",
			err,
		)
	}

	if document.Version == 0 {
		return fmt.Errorf("obligations document version tag is missing")
	}

	if document.Obligations == nil {
		return fmt.Errorf("obligations document list field is missing")
	}

	obligations := make([]*Obligation, 0, len(document.Obligations))
	for _, record := range document.Obligations {
		obligation, err := record.unwrap()
		if err != nil {
			return fmt.Errorf("invalid obligations document: [%v]", err)
		}

		obligations = append(obligations, obligation)
	}

	or.obligationsMutex.Lock()
	or.obligations = obligations
	or.obligationsMutex.Unlock()

	or.logger.Infof("loaded [%v] obligation definitions", len(obligations))

	return nil
}

// Reload re-reads the document from the same source. Safe to call at any
// time; a failed reload leaves the current set untouched.
func (or *ObligationRegistry) Reload() error {
	return or.Load()
}

func (or *ObligationRegistry) ListActive() []*Obligation {
	or.obligationsMutex.RLock()
	defer or.obligationsMutex.RUnlock()

	active := make([]*Obligation, 0)
	for _, obligation := range or.obligations {
		if obligation.Active {
			active = append(active, obligation)
		}
	}

	return active
}

// PaymentsDue computes the pending instalments for the current cycle. An
// obligation is due when it has never been paid and its start lies at least
// the grace period back, when no payment was recorded in the current
// calendar month, or when the most recent payment is older than the grace
// period. At most one pending payment is produced per obligation.
func (or *ObligationRegistry) PaymentsDue() ([]*PendingPayment, error) {
	now := time.Now()

	pending := make([]*PendingPayment, 0)

	for _, obligation := range or.ListActive() {
		due, err := or.isDue(obligation, now)
		if err != nil {
			return nil, err
		}

		if !due {
			continue
		}

		pending = append(pending, &PendingPayment{
			Obligation: obligation,
			FiatAmount: obligation.MonthlyDue(),
			Currency:   obligation.SettlementCurrency,
			Kind:       PaymentInterest,
		})
	}

	return pending, nil
}

func (or *ObligationRegistry) isDue(
	obligation *Obligation,
	now time.Time,
) (bool, error) {
	lastPayment, err := or.paymentRepository.LastPayment(obligation.ID)
	if err != nil {
		return false, fmt.Errorf(
			"could not get last payment for obligation [%v]: [%v]",
			obligation.ID,
			err,
		)
	}

	if lastPayment == nil {
		return now.Sub(obligation.Start) >= obligationGracePeriod, nil
	}

	paymentsThisMonth, err := or.paymentRepository.PaymentsInMonth(
		obligation.ID,
		now.Year(),
		now.Month(),
	)
	if err != nil {
		return false, fmt.Errorf(
			"could not count monthly payments for obligation [%v]: [%v]",
			obligation.ID,
			err,
		)
	}

	if paymentsThisMonth == 0 {
		return true, nil
	}

	return now.Sub(lastPayment.Time) >= obligationGracePeriod, nil
}

// ObligationSummary aggregates the ledger history of a single obligation.
type ObligationSummary struct {
	Obligation           *Obligation
	InterestPaid         *big.Float
	PrincipalPaid        *big.Float
	LastPaymentTime      *time.Time
	DaysSinceLastPayment int
	PaymentsThisMonth    int
	MonthlyDue           *big.Float
}

func (or *ObligationRegistry) Summaries() ([]*ObligationSummary, error) {
	now := time.Now()

	summaries := make([]*ObligationSummary, 0)

	for _, obligation := range or.ListActive() {
		totals, err := or.paymentRepository.PaymentTotals(obligation.ID)
		if err != nil {
			return nil, fmt.Errorf(
				"could not get payment totals for obligation [%v]: [%v]",
				obligation.ID,
				err,
			)
		}

		lastPayment, err := or.paymentRepository.LastPayment(obligation.ID)
		if err != nil {
			return nil, fmt.Errorf(
				"could not get last payment for obligation [%v]: [%v]",
				obligation.ID,
				err,
			)
		}

		paymentsThisMonth, err := or.paymentRepository.PaymentsInMonth(
			obligation.ID,
			now.Year(),
			now.Month(),
		)
		if err != nil {
			return nil, fmt.Errorf(
				"could not count monthly payments "+
					"for obligation [%v]: [%v]",
				obligation.ID,
				err,
			)
		}

		summary := &ObligationSummary{
			Obligation:        obligation,
			InterestPaid:      totals.Interest,
			PrincipalPaid:     totals.Principal,
			PaymentsThisMonth: paymentsThisMonth,
			MonthlyDue:        obligation.MonthlyDue(),
		}

		// Days elapsed are measured from the last payment or, before the
		// first payment, from the obligation start.
		reference := obligation.Start
		if lastPayment != nil {
			reference = lastPayment.Time
			summary.LastPaymentTime = &lastPayment.Time
		}
		summary.DaysSinceLastPayment = int(now.Sub(reference).Hours() / 24)

		summaries = append(summaries, summary)
	}

	return summaries, nil
}
