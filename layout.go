package main

// Layout is the static geometry of an arena
type Layout struct {
	Pools        map[PoolID][]Transform
	BallSpawns   []Transform
	Bounds       Bounds
	WinnerAnchor Vec3
	LoserAnchor  Vec3
}

// row returns n transforms spaced along Z at x, all facing yaw
func row(x, z0, step float64, n int, yaw float64) []Transform {
	out := make([]Transform, n)
	for i := range out {
		out[i] = Transform{Position: Vec3{X: x, Z: z0 + float64(i)*step}, Yaw: yaw}
	}
	return out
}

// DefaultLayout is a 20x12 m court split at X=0. TeamA spawns on the -X half
// facing +X, TeamB mirrors it. Podiums and spectator stands sit behind the
// court on the +Z side.
func DefaultLayout() Layout {
	winner := Vec3{X: -3, Y: 1, Z: 9}
	loser := Vec3{X: 3, Y: 0, Z: 9}
	return Layout{
		Pools: map[PoolID][]Transform{
			PoolTeamA:        row(-7, -4, 2, 5, 90),
			PoolTeamB:        row(7, -4, 2, 5, 270),
			PoolPodiumWinner: {
				{Position: winner.Add(Vec3{X: -1}), Yaw: 180},
				{Position: winner, Yaw: 180},
				{Position: winner.Add(Vec3{X: 1}), Yaw: 180},
				{Position: winner.Add(Vec3{X: -2}), Yaw: 180},
				{Position: winner.Add(Vec3{X: 2}), Yaw: 180},
			},
			PoolPodiumLoser: {
				{Position: loser.Add(Vec3{X: -1}), Yaw: 180},
				{Position: loser, Yaw: 180},
				{Position: loser.Add(Vec3{X: 1}), Yaw: 180},
				{Position: loser.Add(Vec3{X: -2}), Yaw: 180},
				{Position: loser.Add(Vec3{X: 2}), Yaw: 180},
			},
			PoolSpectatorA: row(-11, -5, 2.5, 5, 90),
			PoolSpectatorB: row(11, -5, 2.5, 5, 270),
		},
		BallSpawns: []Transform{
			{Position: Vec3{Y: 0.1, Z: -5}},
			{Position: Vec3{Y: 0.1, Z: -3}},
			{Position: Vec3{Y: 0.1, Z: -1}},
			{Position: Vec3{Y: 0.1, Z: 1}},
			{Position: Vec3{Y: 0.1, Z: 3}},
			{Position: Vec3{Y: 0.1, Z: 5}},
		},
		Bounds:       Bounds{Min: Vec3{X: -14, Y: -1, Z: -10}, Max: Vec3{X: 14, Y: 12, Z: 12}},
		WinnerAnchor: winner,
		LoserAnchor:  loser,
	}
}

// mirrorX reflects a position across the center line
func mirrorX(p Vec3) Vec3 {
	return Vec3{X: -p.X, Y: p.Y, Z: p.Z}
}
