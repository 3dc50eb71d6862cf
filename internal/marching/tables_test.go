package marching

import "testing"

func TestEdgeTableMatchesCornerSigns(t *testing.T) {
	for c := 0; c < 256; c++ {
		var want uint16
		for edge, pair := range EdgeCorners {
			a := c>>pair[0]&1 != 0
			b := c>>pair[1]&1 != 0
			if a != b {
				want |= 1 << edge
			}
		}
		if EdgeTable[c] != want {
			t.Fatalf("EdgeTable[%d] = %#03x, want %#03x", c, EdgeTable[c], want)
		}
	}
}

func TestTriangleTableUsesExactlyCrossedEdges(t *testing.T) {
	for c := 0; c < 256; c++ {
		row := TriangleTable[c]
		end := len(row)
		for i, v := range row {
			if v == Sentinel {
				end = i
				break
			}
		}
		if end%3 != 0 {
			t.Fatalf("case %d: triangle row length %d is not a multiple of 3", c, end)
		}
		for i := end; i < len(row); i++ {
			if row[i] != Sentinel {
				t.Fatalf("case %d: value %d after sentinel at %d", c, row[i], i)
			}
		}

		used := uint16(0)
		for _, edge := range row[:end] {
			if edge < 0 || edge >= edgeCount {
				t.Fatalf("case %d: edge %d out of range", c, edge)
			}
			used |= 1 << edge
		}
		if used != EdgeTable[c] {
			t.Fatalf("case %d: triangles use edges %#03x, crossed edges are %#03x", c, used, EdgeTable[c])
		}
	}
}

func TestTriangleTableClosedAndConsistentlyWound(t *testing.T) {
	onSameFace := func(e1, e2 int) bool {
		corners := map[int]bool{}
		for _, e := range []int{e1, e2} {
			corners[EdgeCorners[e][0]] = true
			corners[EdgeCorners[e][1]] = true
		}
		for axis := 0; axis < 3; axis++ {
			for _, side := range []float32{0, 1} {
				all := true
				for corner := range corners {
					if CornerOffsets[corner][axis] != side {
						all = false
						break
					}
				}
				if all {
					return true
				}
			}
		}
		return false
	}

	for c := 1; c < 255; c++ {
		edges := TriangleEdges(Case(c))
		directed := map[[2]int]int{}
		for i := 0; i < len(edges); i += 3 {
			tri := edges[i : i+3]
			for j := 0; j < 3; j++ {
				directed[[2]int{tri[j], tri[(j+1)%3]}]++
			}
		}
		for seg, n := range directed {
			reverse := directed[[2]int{seg[1], seg[0]}]
			if n > 1 {
				t.Fatalf("case %d: segment %v repeated with the same direction", c, seg)
			}
			if reverse == 0 && !onSameFace(seg[0], seg[1]) {
				t.Fatalf("case %d: open segment %v is not on a cell face", c, seg)
			}
		}
	}
}
