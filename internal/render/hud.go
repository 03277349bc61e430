package render

import (
	"fmt"
	"strings"

	"github.com/annel0/tilecraft/internal/world/entity"
)

// HotbarLine форматирует хотбар игрока: выбранный слот в квадратных скобках
func HotbarLine(p *entity.Player) string {
	var b strings.Builder
	selected := p.Inventory.Selected()
	for i, s := range p.Inventory.Slots() {
		if i > 0 {
			b.WriteByte(' ')
		}
		label := "-"
		if !s.IsEmpty() {
			label = fmt.Sprintf("%s x%d", s.Item.Name(), s.Quantity)
		}
		if i == selected {
			fmt.Fprintf(&b, "[%d:%s]", (i+1)%10, label)
		} else {
			fmt.Fprintf(&b, "%d:%s", (i+1)%10, label)
		}
	}
	return b.String()
}
