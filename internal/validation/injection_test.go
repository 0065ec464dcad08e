package validation

import "testing"

func TestContainsOperator(t *testing.T) {
	hits := []string{"$gt: 1", "$gte:1", "x $ne : null", "$IN: [1]", "{$where: 1}", "$elemMatch:{}", "$nin:"}
	for _, s := range hits {
		if !ContainsOperator(s) {
			t.Errorf("%q should match", s)
		}
	}
	misses := []string{"$120: cheap", "$gt", "gt: 1", "$insane: deal", "price is $5", ""}
	for _, s := range misses {
		if ContainsOperator(s) {
			t.Errorf("%q should not match", s)
		}
	}
}
