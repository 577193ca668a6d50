// Package authbayes provides an online classifier that predicts whether an
// authentication event will succeed or fail from how often its key failed
// and succeeded over the two most recent log chunks.
//
// Quick start:
//
//	c, err := authbayes.New(priorRatio)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := c.RolloverFrom(priorRatio, previousWindow); err != nil {
//	    log.Fatal(err)
//	}
//
//	d, err := c.Classify("1331901000,C2,U1,S")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(d.Prediction, d.BayesFactor)
//
// At each chunk boundary call Rollover with the prior ratio NF/NS of all
// chunks seen so far. A Classifier is safe for concurrent use, but events
// are scored in the order the calls are serialized.
package authbayes
