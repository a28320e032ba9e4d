package dungeon

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// 每个房间的最大放置尝试次数
const placeAttemptsPerRoom = 50

// NewGenerator 返回基于给定随机源的 Provider（并发安全）
func NewGenerator(rng *rand.Rand) Provider {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	var mu sync.Mutex
	return func(opts Options) (*Dungeon, error) {
		mu.Lock()
		defer mu.Unlock()
		return Generate(opts, rng)
	}
}

// Generate 房间 + 走廊式地牢：
// 随机放置互不重叠的矩形房间（编号从 2 递增），并用 L 形走廊把每个房间连到上一个房间
func Generate(opts Options, rng *rand.Rand) (*Dungeon, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	d := &Dungeon{
		Maze:       make([][]int, opts.Height),
		W:          opts.Width,
		H:          opts.Height,
		RoomSize:   opts.AvgRoomSize,
		NextRoomID: FirstRoomID,
	}
	for y := range d.Maze {
		d.Maze[y] = make([]int, opts.Width)
	}

	minSide := max(2, opts.AvgRoomSize/2)
	maxSide := max(minSide, opts.AvgRoomSize)

	for attempt := 0; attempt < opts.RoomCount*placeAttemptsPerRoom && len(d.Rooms) < opts.RoomCount; attempt++ {
		rw := minSide + rng.Intn(maxSide-minSide+1)
		rh := minSide + rng.Intn(maxSide-minSide+1)
		// 四周保留一圈墙
		if rw > d.W-2 || rh > d.H-2 {
			continue
		}
		rx := 1 + rng.Intn(d.W-rw-1)
		ry := 1 + rng.Intn(d.H-rh-1)
		if d.overlaps(rx, ry, rw, rh) {
			continue
		}

		room := Room{ID: d.NextRoomID, X: rx, Y: ry, W: rw, H: rh, CX: rx + rw/2, CY: ry + rh/2}
		d.carveRoom(room)
		if n := len(d.Rooms); n > 0 {
			d.carveCorridor(d.Rooms[n-1].Center(), room.Center(), rng)
		}
		d.Rooms = append(d.Rooms, room)
		d.NextRoomID++
	}

	if len(d.Rooms) < 2 {
		return nil, fmt.Errorf("%w: placed %d of %d rooms in %dx%d", ErrGenerationFailure, len(d.Rooms), opts.RoomCount, opts.Width, opts.Height)
	}
	return d, nil
}

// overlaps 检查候选矩形（含一格间隔）是否碰到已有房间
func (d *Dungeon) overlaps(x, y, w, h int) bool {
	for _, r := range d.Rooms {
		if x-1 <= r.X+r.W-1 && x+w >= r.X &&
			y-1 <= r.Y+r.H-1 && y+h >= r.Y {
			return true
		}
	}
	return false
}

func (d *Dungeon) carveRoom(r Room) {
	for y := r.Y; y < r.Y+r.H; y++ {
		for x := r.X; x < r.X+r.W; x++ {
			d.Maze[y][x] = r.ID
		}
	}
}

// carveCorridor 在两点间挖 L 形走廊，拐角方向随机
func (d *Dungeon) carveCorridor(a, b Point, rng *rand.Rand) {
	if rng.Intn(2) == 0 {
		d.carveH(a.X, b.X, a.Y)
		d.carveV(a.Y, b.Y, b.X)
	} else {
		d.carveV(a.Y, b.Y, a.X)
		d.carveH(a.X, b.X, b.Y)
	}
}

func (d *Dungeon) carveH(x1, x2, y int) {
	if x1 > x2 {
		x1, x2 = x2, x1
	}
	for x := x1; x <= x2; x++ {
		d.dig(x, y)
	}
}

func (d *Dungeon) carveV(y1, y2, x int) {
	if y1 > y2 {
		y1, y2 = y2, y1
	}
	for y := y1; y <= y2; y++ {
		d.dig(x, y)
	}
}

// dig 只把墙改成走廊，不覆盖房间
func (d *Dungeon) dig(x, y int) {
	if d.InBounds(x, y) && d.Maze[y][x] == CellWall {
		d.Maze[y][x] = CellCorridor
	}
}
