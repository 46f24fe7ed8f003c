package seed

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/apetrenko/linkgraph/internal/domain"
)

// Config drives the synthetic data generator.
type Config struct {
	NumPersons            int
	NumTransfers          int
	SharedAttributeChance float64
	InstrumentShareChance float64
	IPShareChance         float64
	DeviceShareChance     float64
	Seed                  int64
}

// DefaultConfig returns baseline settings that produce a well-connected graph.
func DefaultConfig() Config {
	return Config{
		NumPersons:            1000,
		NumTransfers:          10000,
		SharedAttributeChance: 0.35,
		InstrumentShareChance: 0.25,
		IPShareChance:         0.25,
		DeviceShareChance:     0.3,
		Seed:                  42,
	}
}

// TransferSpec references its parties by person index: person ids are minted
// by the service at load time, so they cannot be baked into the patch here.
type TransferSpec struct {
	PayerIdx int
	PayeeIdx int
	Patch    domain.TransferPatch
}

// Dataset contains the generated persons and transfers.
type Dataset struct {
	Persons   []domain.PersonPatch
	Transfers []TransferSpec
}

// Generator produces synthetic graph data with shared attribute pools, so
// derived links appear at realistic densities.
type Generator struct {
	cfg   Config
	rand  *rand.Rand
	names nameFragments
	pools attributePools
}

// New returns a configured Generator instance.
func New(cfg Config) *Generator {
	def := DefaultConfig()
	if cfg.NumPersons <= 0 {
		cfg.NumPersons = def.NumPersons
	}
	if cfg.NumTransfers <= 0 {
		cfg.NumTransfers = def.NumTransfers
	}
	if cfg.SharedAttributeChance <= 0 {
		cfg.SharedAttributeChance = def.SharedAttributeChance
	}
	if cfg.InstrumentShareChance <= 0 {
		cfg.InstrumentShareChance = def.InstrumentShareChance
	}
	if cfg.IPShareChance <= 0 {
		cfg.IPShareChance = def.IPShareChance
	}
	if cfg.DeviceShareChance <= 0 {
		cfg.DeviceShareChance = def.DeviceShareChance
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	return &Generator{
		cfg:   cfg,
		rand:  rand.New(rand.NewSource(cfg.Seed)),
		names: defaultNameFragments(),
		pools: attributePools{},
	}
}

// Generate synthesises persons and transfers. It respects context cancellation.
func (g *Generator) Generate(ctx context.Context) (Dataset, error) {
	persons := make([]domain.PersonPatch, g.cfg.NumPersons)

	for i := 0; i < g.cfg.NumPersons; i++ {
		if err := ctx.Err(); err != nil {
			return Dataset{}, err
		}

		email := g.maybeSharedString(&g.pools.emails, g.cfg.SharedAttributeChance, g.randomEmail)
		phone := g.maybeSharedString(&g.pools.phones, g.cfg.SharedAttributeChance, g.randomPhone)
		firstName := g.names.first[g.rand.Intn(len(g.names.first))]
		lastName := g.names.last[g.rand.Intn(len(g.names.last))]
		address := g.maybeSharedAddress()
		instruments := g.maybeInstruments(i)

		persons[i] = domain.PersonPatch{
			FirstName:   &firstName,
			LastName:    &lastName,
			Email:       &email,
			Phone:       &phone,
			Address:     address,
			Instruments: &instruments,
		}
	}

	transfers := make([]TransferSpec, g.cfg.NumTransfers)
	now := time.Now().UTC()

	for i := 0; i < g.cfg.NumTransfers; i++ {
		if err := ctx.Err(); err != nil {
			return Dataset{}, err
		}

		payerIdx := g.rand.Intn(g.cfg.NumPersons)
		payeeIdx := g.rand.Intn(g.cfg.NumPersons)
		if payerIdx == payeeIdx {
			payeeIdx = (payeeIdx + 1) % g.cfg.NumPersons
		}

		amount := g.rand.Float64()*4900 + 100
		currency := "USD"
		transferType := g.randomTransferType()
		status := domain.TransferStatusCompleted
		timestamp := now.Add(-time.Duration(g.rand.Intn(60*24)) * time.Minute)
		description := g.randomNote()
		paymentType := g.randomInstrumentType()
		deviceID := g.maybeSharedString(&g.pools.devices, g.cfg.DeviceShareChance, g.randomDeviceID)
		ip := g.maybeSharedString(&g.pools.ips, g.cfg.IPShareChance, g.randomIP)
		country := "US"
		region := g.names.regions[g.rand.Intn(len(g.names.regions))]

		transfers[i] = TransferSpec{
			PayerIdx: payerIdx,
			PayeeIdx: payeeIdx,
			Patch: domain.TransferPatch{
				Type:        &transferType,
				Status:      &status,
				Amount:      &amount,
				Currency:    &currency,
				Timestamp:   &timestamp,
				Description: &description,
				DeviceID:    &deviceID,
				PaymentType: &paymentType,
				Fingerprint: &domain.DeviceFingerprint{
					IPAddress: ip,
					Geo: &domain.GeoHint{
						Country: &country,
						Region:  &region,
					},
				},
			},
		}
	}

	return Dataset{Persons: persons, Transfers: transfers}, nil
}

type attributePools struct {
	emails      []string
	phones      []string
	addresses   []domain.Address
	instruments []domain.PaymentInstrument
	ips         []string
	devices     []string
}

func (g *Generator) maybeSharedString(pool *[]string, chance float64, newValue func() string) string {
	if len(*pool) > 0 && g.rand.Float64() < chance {
		return (*pool)[g.rand.Intn(len(*pool))]
	}
	val := newValue()
	*pool = append(*pool, val)
	return val
}

func (g *Generator) maybeSharedAddress() *domain.Address {
	if len(g.pools.addresses) > 0 && g.rand.Float64() < g.cfg.SharedAttributeChance {
		addr := g.pools.addresses[g.rand.Intn(len(g.pools.addresses))]
		return &addr
	}
	street := g.randomStreet()
	city := g.names.cities[g.rand.Intn(len(g.names.cities))]
	region := g.names.regions[g.rand.Intn(len(g.names.regions))]
	postal := fmt.Sprintf("%05d", g.rand.Intn(99999))
	country := "US"
	addr := domain.Address{
		Street:     &street,
		City:       &city,
		Region:     &region,
		PostalCode: &postal,
		Country:    &country,
	}
	g.pools.addresses = append(g.pools.addresses, addr)
	return &addr
}

func (g *Generator) maybeInstruments(personIdx int) []domain.PaymentInstrument {
	count := 1 + g.rand.Intn(2)
	instruments := make([]domain.PaymentInstrument, 0, count)
	for i := 0; i < count; i++ {
		if len(g.pools.instruments) > 0 && g.rand.Float64() < g.cfg.InstrumentShareChance {
			instruments = append(instruments, g.pools.instruments[g.rand.Intn(len(g.pools.instruments))])
			continue
		}
		inst := domain.PaymentInstrument{
			ID:   fmt.Sprintf("PI-%06d-%d", personIdx+1, i+1),
			Type: g.randomInstrumentType(),
		}
		if g.rand.Float64() < 0.5 {
			g.pools.instruments = append(g.pools.instruments, inst)
		}
		instruments = append(instruments, inst)
	}
	return instruments
}

func (g *Generator) randomEmail() string {
	domainName := g.names.domains[g.rand.Intn(len(g.names.domains))]
	return fmt.Sprintf("%s.%s@%s",
		g.names.first[g.rand.Intn(len(g.names.first))],
		g.names.last[g.rand.Intn(len(g.names.last))],
		domainName)
}

func (g *Generator) randomPhone() string {
	return fmt.Sprintf("+1%03d%03d%04d", g.rand.Intn(900)+100, g.rand.Intn(900)+100, g.rand.Intn(10000))
}

func (g *Generator) randomStreet() string {
	return fmt.Sprintf("%d %s %s", g.rand.Intn(9999)+1,
		g.names.streetNames[g.rand.Intn(len(g.names.streetNames))],
		g.names.streetSuffix[g.rand.Intn(len(g.names.streetSuffix))])
}

func (g *Generator) randomInstrumentType() string {
	types := []string{domain.InstrumentCard, domain.InstrumentBankMobile, domain.InstrumentWallet}
	return types[g.rand.Intn(len(types))]
}

func (g *Generator) randomTransferType() string {
	types := []string{domain.TransferTypePayment, domain.TransferTypeRemittance, domain.TransferTypeTopUp}
	return types[g.rand.Intn(len(types))]
}

func (g *Generator) randomIP() string {
	return fmt.Sprintf("%d.%d.%d.%d", g.rand.Intn(223)+1, g.rand.Intn(256), g.rand.Intn(256), g.rand.Intn(256))
}

func (g *Generator) randomDeviceID() string {
	return fmt.Sprintf("device-%06d", g.rand.Intn(999999))
}

func (g *Generator) randomNote() string {
	notes := []string{"Invoice settlement", "Freelance payout", "Peer transfer", "Market purchase", "Family support"}
	return notes[g.rand.Intn(len(notes))]
}

type nameFragments struct {
	first        []string
	last         []string
	domains      []string
	streetNames  []string
	streetSuffix []string
	cities       []string
	regions      []string
}

func defaultNameFragments() nameFragments {
	return nameFragments{
		first:        []string{"Jane", "John", "Alex", "Priya", "Liu", "Maria", "Omar", "Sofia", "Noah", "Emma", "Lucas", "Mia", "Ava", "Ethan", "Zara"},
		last:         []string{"Doe", "Smith", "Chen", "Patel", "Garcia", "Khan", "Kim", "Ivanov", "Nguyen", "Silva", "Brown", "Lee"},
		domains:      []string{"example.com", "mail.com", "linkgraph.io", "payments.net", "securepay.org"},
		streetNames:  []string{"Market", "Mission", "Broadway", "Fifth", "Sunset", "Park", "Cedar", "Oak", "Pine", "Ash"},
		streetSuffix: []string{"St", "Ave", "Blvd", "Ln", "Rd", "Way"},
		cities:       []string{"San Francisco", "New York", "Seattle", "Austin", "Chicago", "Miami", "Denver", "Boston", "Los Angeles"},
		regions:      []string{"CA", "NY", "WA", "TX", "IL", "FL", "CO", "MA"},
	}
}
