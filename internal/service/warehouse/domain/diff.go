package domain

// Diff 是两个商品列表之间的差异
type Diff struct {
	Created  []Product
	Modified []Product
	Deleted  []Product
}

// Empty 判断两个列表是否完全相同
func (d Diff) Empty() bool {
	return len(d.Created)+len(d.Modified)+len(d.Deleted) == 0
}

// ComputeDiff 按 productId 比较新旧商品列表。
// 只在 new 中的商品为 Created，两边都有但任一字段不同为 Modified（整行替换），只在 old 中的为 Deleted。
func ComputeDiff(old, new []Product) Diff {
	remaining := make(map[string]Product, len(old))
	for _, p := range old {
		remaining[p.ProductID] = p
	}

	var d Diff
	for _, p := range new {
		prev, ok := remaining[p.ProductID]
		if !ok {
			d.Created = append(d.Created, p)
			continue
		}
		if prev != p {
			d.Modified = append(d.Modified, p)
		}
		delete(remaining, p.ProductID)
	}
	for _, p := range old {
		if _, ok := remaining[p.ProductID]; ok {
			d.Deleted = append(d.Deleted, p)
		}
	}
	return d
}

// Apply 把差异应用到 old 上，得到新的商品列表
func (d Diff) Apply(old []Product) []Product {
	replaced := make(map[string]Product, len(d.Modified))
	for _, p := range d.Modified {
		replaced[p.ProductID] = p
	}
	deleted := make(map[string]struct{}, len(d.Deleted))
	for _, p := range d.Deleted {
		deleted[p.ProductID] = struct{}{}
	}

	out := make([]Product, 0, len(old)+len(d.Created))
	for _, p := range old {
		if _, ok := deleted[p.ProductID]; ok {
			continue
		}
		if r, ok := replaced[p.ProductID]; ok {
			p = r
		}
		out = append(out, p)
	}
	return append(out, d.Created...)
}
