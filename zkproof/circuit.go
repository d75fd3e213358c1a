package zkproof

import (
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash/mimc"
)

// ThresholdCircuit proves score >= threshold for a committed score.
//
// Public inputs (declaration order matters for the public witness):
//
//	Commitment = MiMC(Score, Nonce)
//	Threshold  = the public pass threshold
//
// Private witnesses are the score and the commitment nonce.
type ThresholdCircuit struct {
	Commitment frontend.Variable `gnark:",public"`
	Threshold  frontend.Variable `gnark:",public"`

	Score frontend.Variable
	Nonce frontend.Variable
}

// Define implements the circuit constraints.
func (c *ThresholdCircuit) Define(api frontend.API) error {
	hasher, err := mimc.NewMiMC(api)
	if err != nil {
		return err
	}

	hasher.Write(c.Score)
	hasher.Write(c.Nonce)
	api.AssertIsEqual(hasher.Sum(), c.Commitment)

	api.AssertIsLessOrEqual(c.Threshold, c.Score)

	return nil
}
