package commission

import "math"

// AdminRate is the platform's cut of a service charge. The distance surcharge is
// never part of the commission base.
const AdminRate = 0.20

type Split struct {
	AdminCommission float64 `json:"admin_commission"`
	WorkerPayment   float64 `json:"worker_payment"`
	TotalAmount     float64 `json:"total_amount"`
}

type Line struct {
	ServiceType string  `json:"service_type"`
	Title       string  `json:"title"`
	Amount      float64 `json:"amount"`
	Quantity    int     `json:"quantity"`
}

type LineSplit struct {
	Line
	Split
}

type MultiSplit struct {
	Lines     []LineSplit `json:"lines"`
	Aggregate Split       `json:"aggregate"`
}

// SplitAmount computes the revenue split for a single service charge. The worker
// payment is the remainder after the rounded admin commission, so the two always
// sum back to the service amount.
func SplitAmount(serviceAmount, distanceCharge float64) Split {
	adminCommission := math.Round(serviceAmount * AdminRate)

	return Split{
		AdminCommission: adminCommission,
		WorkerPayment:   serviceAmount - adminCommission,
		TotalAmount:     serviceAmount + distanceCharge,
	}
}

// SplitLines applies SplitAmount per quantity-scaled line with no per-line
// distance charge, then adds the distance charge once to the aggregate total.
func SplitLines(lines []Line, distanceCharge float64) MultiSplit {
	result := MultiSplit{
		Lines: make([]LineSplit, len(lines)),
	}

	for i, line := range lines {
		quantity := line.Quantity
		if quantity <= 0 {
			quantity = 1
		}

		lineAmount := line.Amount * float64(quantity)
		split := SplitAmount(lineAmount, 0)

		result.Lines[i] = LineSplit{Line: line, Split: split}
		result.Aggregate.AdminCommission += split.AdminCommission
		result.Aggregate.WorkerPayment += split.WorkerPayment
		result.Aggregate.TotalAmount += split.TotalAmount
	}

	result.Aggregate.TotalAmount += distanceCharge

	return result
}

// DistributeCharge divides a distance charge evenly across n bookings, rounding
// each share and putting the remainder on the first share so the shares always
// sum to the original charge.
func DistributeCharge(charge float64, n int) []float64 {
	if n <= 0 {
		return nil
	}

	shares := make([]float64, n)
	even := math.Floor(charge/float64(n)*100) / 100

	var distributed float64

	for i := 1; i < n; i++ {
		shares[i] = even
		distributed += even
	}

	shares[0] = math.Round((charge-distributed)*100) / 100

	return shares
}
