// Package synthetic provides reference derivative providers with closed-form
// gradients and Hessians. They stand in for real models in tests, in the
// gradcheck command and in end-to-end suites.
package synthetic
