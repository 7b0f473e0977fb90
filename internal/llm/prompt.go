package llm

import (
	"strings"
)

const truncationMarker = "... [texte tronqué]"

// BuildPrompt composes the extraction prompt. The document text is cut to maxChars
// runes (0 = no limit); truncated reports whether that happened.
func BuildPrompt(text, filename string, maxChars int) (prompt string, truncated bool) {
	if r := []rune(text); maxChars > 0 && len(r) > maxChars {
		text = string(r[:maxChars]) + truncationMarker
		truncated = true
	}

	var b strings.Builder
	b.WriteString("Tu es un expert comptable. En te basant sur ces données : ")
	b.WriteString(text)
	b.WriteString("\n\nNom du fichier (peut contenir un indice sur le fournisseur) : ")
	b.WriteString(filename)
	b.WriteString(`

Extrais les informations suivantes et formate-les en JSON strict (sans markdown, juste le code brut).

IMPORTANT - Distinction fournisseur/client :
- Le FOURNISSEUR est la société qui a ÉMIS/ENVOYÉ la facture (l'émetteur, le vendeur, celui qui facture)
- Le CLIENT est la société qui REÇOIT la facture (le destinataire, l'acheteur, celui qui paie)
- Ne confonds JAMAIS le client avec le fournisseur

RÈGLE CRITIQUE :
- BOARDRIDERS (toutes variantes: BOARDRIDERS TRADING ESPAÑA, BOARDRIDERS TRADING, etc.) est TOUJOURS le CLIENT, JAMAIS le fournisseur
- Si tu vois BOARDRIDERS, c'est le destinataire de la facture, pas l'émetteur

Le fournisseur est souvent identifié :
  * Dans l'en-tête ou le logo de la facture (en haut)
  * Dans les coordonnées bancaires (RIB, IBAN)
  * Dans le nom du fichier PDF
  * Comme "émetteur" ou "vendeur"

Le client est souvent identifié :
  * Dans "Adresse de facturation" ou "Adresse d'envoi"
  * Comme "destinataire" ou "acheteur"

ASTUCE: Le nom du fichier contient souvent le nom du FOURNISSEUR

Champs à extraire :
- fournisseur (Nom de la société ÉMETTRICE de la facture, PAS le client/destinataire. Utilise le nom du fichier comme indice si nécessaire)
- montant_ht (Montant hors taxes, nombre uniquement)
- numero_facture (Numéro de la facture)
- date_facture (Date de la facture au format YYYY-MM-DD)
- chrono (Le numéro Chrono du document si présent)
- couverture (La période de couverture/facturation si présente)
- nom_fichier (nom du fichier : `)
	b.WriteString(filename)
	b.WriteString(`)

Champs requis :
- fournisseur (String) - ATTENTION: société ÉMETTRICE, pas le client. Vérifie le nom du fichier ! Si tu vois BOARDRIDERS, ce n'est PAS le fournisseur !
- montant_ht (Number)
- numero_facture (String)
- date_facture (YYYY-MM-DD)
- chrono (Number/String)
- couverture (String - période)
- nom_fichier (String)

Si une info est manquante, mets null.

Réponds UNIQUEMENT avec le JSON, sans texte avant ou après.`)
	return b.String(), truncated
}
