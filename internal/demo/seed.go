package demo

import (
	"context"
	"fmt"

	"mop.org/internal/cases"
)

// InputFor converts a stored case back into an update input that moves it to
// status and keeps every other field.
func InputFor(c cases.Case, status cases.Status) cases.Input {
	return cases.Input{
		BusinessName:       c.BusinessName,
		BusinessType:       c.BusinessType,
		RegistrationNumber: c.RegistrationNumber,
		MerchantCategory:   c.MerchantCategory,
		BusinessAddress:    c.BusinessAddress,
		DirectorName:       c.DirectorName,
		DirectorIC:         c.DirectorIC,
		DirectorPhone:      c.DirectorPhone,
		DirectorEmail:      c.DirectorEmail,
		AssignedTo:         c.AssignedTo,
		Priority:           c.Priority,
		Status:             &status,
	}
}

// Populate creates n generated cases through svc and walks each one up to
// steps transitions along the review workflow.
func Populate(ctx context.Context, svc *cases.Service, gen *Generator, n, steps int, counter *Counter) ([]cases.Case, error) {
	out := make([]cases.Case, 0, n)
	for i := 0; i < n; i++ {
		c, err := svc.CreateCase(ctx, gen.NextCase())
		if err != nil {
			return out, fmt.Errorf("demo: create case %d: %w", i+1, err)
		}
		if counter != nil {
			counter.Created(c.Status)
		}
		for s := 0; s < steps; s++ {
			to, ok := gen.NextStatus(c.Status)
			if !ok {
				break
			}
			from := c.Status
			moved, err := svc.UpdateCase(ctx, c.ID, InputFor(c, to))
			if err != nil {
				return out, fmt.Errorf("demo: move %s to %s: %w", c.ID, to, err)
			}
			c = moved
			if counter != nil {
				counter.Moved(from, to)
			}
		}
		out = append(out, c)
	}
	return out, nil
}
