package bn254

import (
	"sync"

	"github.com/holiman/uint256"
	"github.com/monereum/engine/utils"
)

const (
	DefaultCombWidth = 8
	MaxCombWidth     = 8

	combBits = 256
)

// CombTable fixed-base comb of a given width over 256-bit scalars.
// With d = ceil(256/width) columns, entry i holds Σ P·2^(j·d) for every bit j set in i.
// A multiplication costs d doublings and at most d additions. Immutable once built.
type CombTable struct {
	width   int
	columns int
	points  []Point
}

func NewCombTable(p *Point, width int) *CombTable {
	if width < 1 || width > MaxCombWidth {
		utils.Panicf("bn254: invalid comb width %d", width)
	}

	t := &CombTable{
		width:   width,
		columns: (combBits + width - 1) / width,
		points:  make([]Point, 1<<width),
	}

	// rows[j] = P·2^(j·d)
	rows := make([]Point, width)
	rows[0].Affine(p)
	for j := 1; j < width; j++ {
		rows[j].Set(&rows[j-1])
		for range t.columns {
			rows[j].Double(&rows[j])
		}
	}
	BatchAffine(rows)

	t.points[0].SetIdentity()
	for i := 1; i < len(t.points); i++ {
		low := i & -i
		row := 0
		for (1 << row) != low {
			row++
		}
		t.points[i].Add(&t.points[i&^low], &rows[row])
	}
	BatchAffine(t.points)

	return t
}

func (t *CombTable) Width() int {
	return t.width
}

// Mult sets v = P·k, affine. Variable time.
func (t *CombTable) Mult(v *Point, k *uint256.Int) *Point {
	var kr uint256.Int
	Order.Reduce(&kr, k)

	var r Point
	r.SetIdentity()
	for col := t.columns - 1; col >= 0; col-- {
		r.Double(&r)
		var index int
		for j := range t.width {
			if pos := j*t.columns + col; pos < combBits && bit(&kr, pos) == 1 {
				index |= 1 << j
			}
		}
		if index != 0 {
			r.Add(&r, &t.points[index])
		}
	}
	return v.Affine(&r)
}

// FixedBase a point with a comb table built lazily on first multiplication, then frozen.
// Safe for concurrent use.
type FixedBase struct {
	point Point
	width int

	once  sync.Once
	table *CombTable
}

func NewFixedBase(p *Point, width int) *FixedBase {
	b := &FixedBase{width: width}
	b.point.Affine(p)
	return b
}

func (b *FixedBase) Point() *Point {
	return new(Point).Set(&b.point)
}

func (b *FixedBase) Table() *CombTable {
	b.once.Do(func() {
		b.table = NewCombTable(&b.point, b.width)
	})
	return b.table
}

func (b *FixedBase) Mult(v *Point, k *uint256.Int) *Point {
	return b.Table().Mult(v, k)
}

// TableCache memoizes FixedBase values per affine point, for base points that are reused often
// such as recipients' view keys and per-key generators.
type TableCache struct {
	width int
	cache utils.Cache[[PointSize]byte, *FixedBase]
}

func NewTableCache(size, width int) *TableCache {
	return &TableCache{
		width: width,
		cache: utils.NewLRUCache[[PointSize]byte, *FixedBase](size),
	}
}

func NewTableNilCache() *TableCache {
	return &TableCache{
		width: DefaultCombWidth,
		cache: utils.NewNilCache[[PointSize]byte, *FixedBase](),
	}
}

func (c *TableCache) Get(p *Point) *FixedBase {
	key := p.AffineBytes()
	if b, ok := c.cache.Get(key); ok {
		return b
	}
	b := NewFixedBase(p, c.width)
	c.cache.Set(key, b)
	return b
}

// Mult v = p·k, through the cached table of p
func (c *TableCache) Mult(v *Point, k *uint256.Int, p *Point) *Point {
	return c.Get(p).Mult(v, k)
}

func (c *TableCache) Clear() {
	c.cache.Clear()
}

// ScalarBaseMult v = G·k
func (v *Point) ScalarBaseMult(k *uint256.Int) *Point {
	return Params().BaseTable().Mult(v, k)
}

// ScalarMultH v = H·k
func (v *Point) ScalarMultH(k *uint256.Int) *Point {
	return Params().HTable().Mult(v, k)
}
