// Package textutil sanitizes report titles into names that are safe on
// every filesystem an export directory may live on.
package textutil
