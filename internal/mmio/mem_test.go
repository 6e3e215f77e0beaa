package mmio

import "testing"

func TestAlignSpan(t *testing.T) {
	const page = 0x1000
	cases := []struct {
		name                   string
		base, size             uint64
		mapBase, mapSize, skip uint64
	}{
		{"page aligned", 0x2004c000, 0x100, 0x2004c000, 0x1000, 0},
		{"offset into page", 0x2004c400, 0x100, 0x2004c000, 0x1000, 0x400},
		{"span crosses page end", 0x2004cf80, 0x100, 0x2004c000, 0x2000, 0xf80},
		{"exactly one page", 0x2004c000, 0x1000, 0x2004c000, 0x1000, 0},
		{"offset pushes past one page", 0x2004c008, 0x1000, 0x2004c000, 0x2000, 0x8},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mapBase, mapSize, skip := alignSpan(tc.base, tc.size, page)
			if mapBase != tc.mapBase || mapSize != tc.mapSize || skip != tc.skip {
				t.Fatalf("got (%#x, %#x, %#x), want (%#x, %#x, %#x)",
					mapBase, mapSize, skip, tc.mapBase, tc.mapSize, tc.skip)
			}
			if mapBase%page != 0 || mapSize%page != 0 {
				t.Fatalf("result not page aligned: base %#x size %#x", mapBase, mapSize)
			}
			if mapBase+skip != tc.base || mapSize < skip+tc.size {
				t.Fatalf("span [%#x,+%#x) not covered by mapping [%#x,+%#x) at skip %#x",
					tc.base, tc.size, mapBase, mapSize, skip)
			}
		})
	}
}
