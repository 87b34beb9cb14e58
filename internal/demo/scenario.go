package demo

import (
	"fmt"
	"math/rand"
	"time"

	"mop.org/internal/cases"
)

// Scenario is the pool of values generated cases draw from.
type Scenario struct {
	Name          string
	BusinessNames []string
	BusinessTypes []string
	Categories    []string
	Directors     []string
	Streets       []string
	Priorities    []string
	DocumentKinds []string
}

// MerchantPipelineScenario mirrors the seeded business parameters so generated
// cases line up with the reference data.
func MerchantPipelineScenario() Scenario {
	return Scenario{
		BusinessNames: []string{
			"Sunrise Bakery", "Harbour Electronics", "Lotus Travel", "Kopi Corner",
			"Metro Hardware", "Green Leaf Grocer", "Skyline Tours", "Pixel Gadgets",
		},
		BusinessTypes: []string{"Sole Proprietorship", "Partnership", "Private Limited Company", "Public Limited Company"},
		Categories:    []string{"Retail", "Food & Beverage", "Electronics", "Travel"},
		Directors:     []string{"Aisyah Rahman", "Daniel Tan", "Priya Nair", "Lim Wei Jie", "Farid Hassan"},
		Streets:       []string{"Jalan Ampang", "Jalan Bukit Bintang", "Lebuh Pantai", "Jalan Tun Razak"},
		Priorities:    []string{cases.DefaultPriority, cases.DefaultPriority, "High", "Low"},
		DocumentKinds: []string{"SSM Certificate", "Director IC", "Bank Statement"},
		Name:          "Merchant Pipeline",
	}
}

// Generator produces pseudo-random onboarding cases. Equal seeds yield equal
// sequences. It is not safe for concurrent use.
type Generator struct {
	scenario Scenario
	rnd      *rand.Rand
}

func NewGenerator(seed int64) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{scenario: MerchantPipelineScenario(), rnd: rand.New(rand.NewSource(seed))}
}

func (g *Generator) pick(xs []string) string {
	return xs[g.rnd.Intn(len(xs))]
}

// NextCase returns the input for a new case. Status is left unset so the
// service applies its default.
func (g *Generator) NextCase() cases.Input {
	s := g.scenario
	director := g.pick(s.Directors)
	in := cases.Input{
		BusinessName:       fmt.Sprintf("%s %d", g.pick(s.BusinessNames), g.rnd.Intn(900)+100),
		BusinessType:       g.pick(s.BusinessTypes),
		RegistrationNumber: fmt.Sprintf("%06d-%c", g.rnd.Intn(1_000_000), 'A'+rune(g.rnd.Intn(26))),
		MerchantCategory:   g.pick(s.Categories),
		BusinessAddress:    fmt.Sprintf("%d %s, Kuala Lumpur", g.rnd.Intn(200)+1, g.pick(s.Streets)),
		DirectorName:       director,
		DirectorIC:         fmt.Sprintf("%06d-%02d-%04d", g.rnd.Intn(1_000_000), g.rnd.Intn(15)+1, g.rnd.Intn(10_000)),
		DirectorPhone:      fmt.Sprintf("+6012%07d", g.rnd.Intn(10_000_000)),
		DirectorEmail:      fmt.Sprintf("director%d@merchant.test", g.rnd.Intn(100_000)),
		Priority:           g.pick(s.Priorities),
	}
	for i, n := 0, g.rnd.Intn(len(s.DocumentKinds)+1); i < n; i++ {
		kind := s.DocumentKinds[i]
		in.Documents = append(in.Documents, cases.Document{Name: kind + ".pdf", Type: kind})
	}
	return in
}

// NextStatus walks one step along the review workflow from current. It
// returns false when current is terminal.
func (g *Generator) NextStatus(current cases.Status) (cases.Status, bool) {
	next := cases.ReviewWorkflow().Next(current)
	if len(next) == 0 {
		return "", false
	}
	return next[g.rnd.Intn(len(next))], true
}

func (g *Generator) Scenario() Scenario {
	return g.scenario
}
