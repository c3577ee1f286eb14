package llm

// DefaultSystemPrompt covers tenants whose configuration carries no custom
// prompt. Kept deliberately short: long prompts cost latency on every turn.
const DefaultSystemPrompt = `You are a friendly phone receptionist taking orders over the phone.

RULES: Brief responses (1 sentence, max 15 words). Be warm, efficient. Repeat back key items. Never mention AI or automation. Don't repeat questions already asked.

COLLECT: Items (type, size, quantity) -> delivery or pickup -> address or pickup name -> confirm the full order -> thank the caller.`

const extractionSystemPrompt = "You are a data extraction assistant. Return only valid JSON."

const extractionPromptFormat = `Extract order information from this phone conversation. Match items EXACTLY to the menu when one is provided.

MENU:
%s

Conversation:
%s

Return ONLY a JSON object with these fields:
{
    "customer_name": name if mentioned or null,
    "items": description of ALL items ordered with size, quantity and customizations, matching menu names exactly; empty string if none,
    "order_type": "delivery" or "pickup" or null,
    "delivery_address": full address if delivery mentioned or null,
    "pickup_name": name for a pickup order or null,
    "phone_number": phone number if mentioned or null,
    "special_instructions": special requests or notes or null,
    "payment_method": "cash" or "card" or null,
    "total_estimate": estimated total price if calculable or null,
    "order_confirmed": true if the caller confirmed the order, false otherwise
}

IMPORTANT:
- Match item names EXACTLY to the menu when a menu is present
- Extract everything mentioned, even partial information`
