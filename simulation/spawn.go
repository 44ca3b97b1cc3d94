package simulation

import "icoplanet/physics"

// Spawners fans one Spawn call out to several spawners in order.
type Spawners []physics.Spawner

// Spawn implements physics.Spawner.
func (s Spawners) Spawn() {
	for _, sp := range s {
		if sp != nil {
			sp.Spawn()
		}
	}
}
