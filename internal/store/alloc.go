package store

import (
	"fmt"
	"strconv"
	"strings"
)

// NextID allocates the next work-unit id for a prefix by scanning the ids
// already present: <PREFIX>-<seq> with seq one past the highest in use.
func (d *Document) NextID(prefix string) string {
	max := 0
	for id := range d.WorkUnits {
		rest, ok := strings.CutPrefix(id, prefix+"-")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(rest)
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return fmt.Sprintf("%s-%d", prefix, max+1)
}
