package commenttree

import "github.com/lib/pq"

func pqArray(ids []int64) pq.Int64Array {
	return pq.Int64Array(ids)
}
