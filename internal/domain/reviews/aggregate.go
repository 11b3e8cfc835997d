package reviews

import "math"

// RatingSnapshot is the derived state cached on a restaurant: the mean of
// the approved overall ratings (one decimal place), how many there are,
// and a per-star breakdown.
type RatingSnapshot struct {
	Average   float64     `json:"average_rating"`
	Count     int         `json:"review_count"`
	Breakdown map[int]int `json:"rating_breakdown"`
}

// AggregateRatings computes a snapshot from the overall ratings of the
// counted set. An empty set yields average 0 and a zeroed breakdown.
// Recomputing from scratch keeps the cached aggregate drift-free no matter
// how the set changed.
func AggregateRatings(ratings []int) RatingSnapshot {
	snap := RatingSnapshot{
		Breakdown: map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0},
	}

	if len(ratings) == 0 {
		return snap
	}

	sum := 0
	for _, r := range ratings {
		sum += r

		star := r
		if star < 1 {
			star = 1
		} else if star > 5 {
			star = 5
		}
		snap.Breakdown[star]++
	}

	snap.Count = len(ratings)
	snap.Average = math.Round(float64(sum)/float64(len(ratings))*10) / 10

	return snap
}
